package poll

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/stratacluster/strata/pkg/types"
)

// Probe performs one health query. Each invocation is expected to open a
// fresh session against the status surface; a query that cannot connect
// reports Unreachable rather than failing the loop.
type Probe func(ctx context.Context) types.HealthCheckResult

// Bound identifies which budget terminated a poll loop
type Bound string

const (
	BoundNone     Bound = ""
	BoundTime     Bound = "total_timeout"
	BoundAttempts Bound = "max_attempts"
)

// Result summarises one completed poll loop
type Result struct {
	Status   types.OutcomeStatus
	Bound    Bound
	Attempts int
	Elapsed  time.Duration
	Last     types.HealthCheckResult
}

// Poller runs bounded poll loops. The zero value is not usable; construct
// with New.
type Poller struct {
	clock       clockwork.Clock
	attemptHook func(attempt int, res types.HealthCheckResult)
}

// Option customises a Poller
type Option func(*Poller)

// WithAttemptHook registers a callback invoked after every probe attempt
func WithAttemptHook(fn func(attempt int, res types.HealthCheckResult)) Option {
	return func(p *Poller) {
		p.attemptHook = fn
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// New creates a Poller backed by the wall clock
func New(opts ...Option) *Poller {
	p := &Poller{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls probe every policy.Interval until the first Healthy result,
// observing both poll budgets: at most policy.MaxAttempts queries, and never
// longer than policy.TotalTimeout. A non-positive budget field disables that
// bound. When both bounds would trigger in the same iteration the time bound
// wins. Cancellation is honored between iterations, never mid-query; a
// cancelled context returns the partial Result alongside ctx.Err().
func (p *Poller) Run(ctx context.Context, policy types.RetryPolicy, probe Probe) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if probe == nil {
		return Result{}, errors.New("poll: probe must not be nil")
	}
	if policy.Interval <= 0 {
		return Result{}, errors.New("poll: interval must be positive")
	}

	start := p.clock.Now()
	res := Result{}

	for {
		if err := ctx.Err(); err != nil {
			res.Status = types.OutcomeAborted
			res.Elapsed = p.clock.Since(start)
			return res, err
		}

		observed := probe(ctx)
		res.Attempts++
		res.Last = observed
		if p.attemptHook != nil {
			p.attemptHook(res.Attempts, observed)
		}

		if observed.Healthy() {
			res.Status = types.OutcomeSuccess
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}

		if policy.TotalTimeout > 0 && p.clock.Since(start) >= policy.TotalTimeout {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundTime
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}
		if policy.MaxAttempts > 0 && res.Attempts >= policy.MaxAttempts {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundAttempts
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}

		select {
		case <-ctx.Done():
			res.Status = types.OutcomeAborted
			res.Elapsed = p.clock.Since(start)
			return res, ctx.Err()
		case <-p.clock.After(policy.Interval):
		}

		// The sleep may have carried us past the wall-clock budget.
		if policy.TotalTimeout > 0 && p.clock.Since(start) >= policy.TotalTimeout {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundTime
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}
	}
}

// Condition reports whether the awaited state has been reached. An error is
// fatal and terminates the loop immediately; it is not budgeted like a
// degraded health result.
type Condition func(ctx context.Context) (bool, error)

// RunCondition polls cond under the same dual budget as Run. It is used for
// control-plane state confirmations (guest stopped, connection state
// reached) where a query error means the endpoint failed, not that the
// cluster is settling.
func (p *Poller) RunCondition(ctx context.Context, policy types.RetryPolicy, cond Condition) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cond == nil {
		return Result{}, errors.New("poll: condition must not be nil")
	}
	if policy.Interval <= 0 {
		return Result{}, errors.New("poll: interval must be positive")
	}

	start := p.clock.Now()
	res := Result{}

	for {
		if err := ctx.Err(); err != nil {
			res.Status = types.OutcomeAborted
			res.Elapsed = p.clock.Since(start)
			return res, err
		}

		ok, err := cond(ctx)
		res.Attempts++
		if err != nil {
			res.Status = types.OutcomeAborted
			res.Elapsed = p.clock.Since(start)
			return res, err
		}
		if ok {
			res.Status = types.OutcomeSuccess
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}

		if policy.TotalTimeout > 0 && p.clock.Since(start) >= policy.TotalTimeout {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundTime
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}
		if policy.MaxAttempts > 0 && res.Attempts >= policy.MaxAttempts {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundAttempts
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}

		select {
		case <-ctx.Done():
			res.Status = types.OutcomeAborted
			res.Elapsed = p.clock.Since(start)
			return res, ctx.Err()
		case <-p.clock.After(policy.Interval):
		}

		if policy.TotalTimeout > 0 && p.clock.Since(start) >= policy.TotalTimeout {
			res.Status = types.OutcomeTimedOut
			res.Bound = BoundTime
			res.Elapsed = p.clock.Since(start)
			return res, nil
		}
	}
}
