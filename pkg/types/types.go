package types

import (
	"time"
)

// Node represents one member of a hyperconverged cluster
type Node struct {
	ID             string
	Name           string
	Address        string // Management IP address
	ServiceVMID    string // Controller VM backing the node's storage services
	Phase          LifecyclePhase
	LastTransition time.Time
}

// LifecyclePhase is the lifecycle state of a node during a maintenance transition
type LifecyclePhase string

const (
	PhaseActive      LifecyclePhase = "active"
	PhaseDraining    LifecyclePhase = "draining"
	PhaseMaintenance LifecyclePhase = "maintenance"
	PhaseRestoring   LifecyclePhase = "restoring"
)

// ConnectionState is the infrastructure-level connection state of a node
type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionMaintenance  ConnectionState = "maintenance"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionUnknown      ConnectionState = "unknown"
)

// HealthState classifies the outcome of a single health probe
type HealthState string

const (
	HealthHealthy     HealthState = "healthy"
	HealthDegraded    HealthState = "degraded"
	HealthUnreachable HealthState = "unreachable"
)

// HealthCheckResult is an immutable snapshot of one health probe.
// It is consumed only to decide poll-loop continuation and is never persisted.
type HealthCheckResult struct {
	State     HealthState
	Reason    string
	CheckedAt time.Time
	Duration  time.Duration
}

// Healthy reports whether the probe observed a fully healthy cluster
func (r HealthCheckResult) Healthy() bool {
	return r.State == HealthHealthy
}

// RetryPolicy bounds a poll loop with both an attempt count and a wall-clock
// budget. Whichever bound triggers first terminates the loop; the relation
// MaxAttempts*Interval <= TotalTimeout is advisory, not enforced.
type RetryPolicy struct {
	MaxAttempts  int
	Interval     time.Duration
	TotalTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when the config does not set one
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  30,
		Interval:     10 * time.Second,
		TotalTimeout: 10 * time.Minute,
	}
}

// OutcomeStatus is the terminal status of one full lifecycle transition
type OutcomeStatus string

const (
	OutcomeSuccess  OutcomeStatus = "success"
	OutcomeTimedOut OutcomeStatus = "timed_out"
	OutcomeAborted  OutcomeStatus = "aborted"
)

// OperationOutcome is the terminal result of one lifecycle transition,
// consumed by the caller for reporting and the process exit code.
type OperationOutcome struct {
	NodeID  string
	Status  OutcomeStatus
	Cause   error
	Phases  []LifecyclePhase // Phases confirmed, in order
	Elapsed time.Duration
}

// ContainerConfig describes a storage container to be created. The four
// feature settings are independent; the only cross-field rule is that
// deduplication requires fingerprinting, validated centrally before any
// connection is attempted.
type ContainerConfig struct {
	Name                    string `validate:"required" yaml:"name"`
	ReplicationFactor       int    `validate:"oneof=2 3" yaml:"replicationFactor"`
	CompressionEnabled      bool   `yaml:"compressionEnabled"`
	CompressionDelaySeconds int    `validate:"gte=0" yaml:"compressionDelaySeconds"`
	DedupeEnabled           bool   `yaml:"dedupeEnabled"`
	FingerprintEnabled      bool   `yaml:"fingerprintEnabled"`
}

// ProtectionDomain groups containers for replication policies
type ProtectionDomain struct {
	Name      string
	Stretched bool
	CreatedAt time.Time
}

// StretchParams establishes a metro (synchronous replication) relationship
// between a local and a remote container across two management endpoints
type StretchParams struct {
	ProtectionDomain string
	LocalContainer   string
	RemoteEndpoint   string
	RemoteContainer  string
}

// DatastoreMount presents a container as a datastore on a set of hosts
type DatastoreMount struct {
	Container string
	Hosts     []string
}
