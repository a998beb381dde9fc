package controlplane

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stratacluster/strata/pkg/types"
)

var (
	// ErrConnection indicates a management endpoint could not be reached.
	// Connection failures are fatal to the run; they are never retried at
	// this layer.
	ErrConnection = errors.New("controlplane: endpoint unreachable")

	// ErrNotFound indicates the named resource does not exist
	ErrNotFound = errors.New("controlplane: not found")

	// ErrAlreadyExists indicates the named resource already exists
	ErrAlreadyExists = errors.New("controlplane: already exists")
)

// Infrastructure drives host connection state on the hypervisor management
// endpoint
type Infrastructure interface {
	// SetNodeState requests a connection-state transition, optionally
	// evacuating running workloads off the node first
	SetNodeState(ctx context.Context, node *types.Node, state types.ConnectionState, evacuate bool) error

	// GetConnectionState reports the node's current connection state
	GetConnectionState(ctx context.Context, node *types.Node) (types.ConnectionState, error)
}

// Workload drives guest VM power state
type Workload interface {
	StopGuest(ctx context.Context, vmID string) error
	StartGuest(ctx context.Context, vmID string) error

	// GetGuestAddress returns the guest's management address and whether
	// the guest currently holds one. A stopped guest holds no address.
	GetGuestAddress(ctx context.Context, vmID string) (string, bool, error)
}

// Storage drives container provisioning on the storage-cluster management
// endpoint
type Storage interface {
	CreateContainer(ctx context.Context, cfg types.ContainerConfig) error
	ContainerExists(ctx context.Context, name string) (bool, error)
	CreateProtectionDomain(ctx context.Context, name string) error
	EnableStretch(ctx context.Context, params types.StretchParams) error
	MountDatastore(ctx context.Context, mount types.DatastoreMount) error
}
