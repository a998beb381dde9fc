package probe

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/stratacluster/strata/pkg/types"
)

// Prober queries the health surface of a cluster member
type Prober interface {
	Check(ctx context.Context, address string) types.HealthCheckResult
}

// CommandProbe executes a status command against a node's remote shell and
// classifies its output. Every Check spawns a fresh session; the remote
// status surface supports no persistent subscription, and a stale session
// would mask connection failures.
type CommandProbe struct {
	command []string // Command template; the node address is appended
	timeout time.Duration
}

// NewCommandProbe constructs a probe around the given command template.
// A typical template is {"ssh", "-o", "BatchMode=yes", "--"} followed by the
// address and the remote status invocation configured on the cluster.
func NewCommandProbe(command []string, timeout time.Duration) (*CommandProbe, error) {
	if len(command) == 0 {
		return nil, errors.New("probe: command must not be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandProbe{
		command: append([]string(nil), command...),
		timeout: timeout,
	}, nil
}

// Check runs one status query. A session that cannot be established
// classifies as Unreachable; it is the caller's poll budget, not this
// probe, that decides when to give up.
func (p *CommandProbe) Check(ctx context.Context, address string) types.HealthCheckResult {
	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	argv := append(append([]string(nil), p.command...), address)
	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		reason := err.Error()
		if msg := stderr.String(); msg != "" {
			reason = msg
		}
		return types.HealthCheckResult{
			State:     types.HealthUnreachable,
			Reason:    reason,
			CheckedAt: start,
			Duration:  duration,
		}
	}

	res := Classify(stdout.String())
	res.CheckedAt = start
	res.Duration = duration
	return res
}

var _ Prober = (*CommandProbe)(nil)
