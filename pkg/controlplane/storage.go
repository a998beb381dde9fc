package controlplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/stratacluster/strata/pkg/types"
)

// StorageClient talks to the storage-cluster management endpoint
type StorageClient struct {
	rest *restClient
}

// NewStorageClient constructs a client and verifies the endpoint answers
// before returning
func NewStorageClient(ctx context.Context, ep Endpoint, timeout time.Duration) (*StorageClient, error) {
	c := &StorageClient{rest: newRESTClient(ep, timeout)}
	if err := c.rest.verify(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type containerRequest struct {
	Name                    string `json:"name"`
	ReplicationFactor       int    `json:"replication_factor"`
	CompressionEnabled      bool   `json:"compression_enabled"`
	CompressionDelaySeconds int    `json:"compression_delay_secs"`
	DedupeEnabled           bool   `json:"on_disk_dedup"`
	FingerprintEnabled      bool   `json:"fingerprint_on_write"`
}

type stretchRequest struct {
	LocalContainer  string `json:"local_container"`
	RemoteEndpoint  string `json:"remote_endpoint"`
	RemoteContainer string `json:"remote_container"`
}

type mountRequest struct {
	Hosts []string `json:"hosts"`
}

// CreateContainer implements Storage. The configuration fields are passed
// through as one value; the endpoint interprets each independently.
func (c *StorageClient) CreateContainer(ctx context.Context, cfg types.ContainerConfig) error {
	return c.rest.do(ctx, http.MethodPost, "/api/v1/containers", containerRequest{
		Name:                    cfg.Name,
		ReplicationFactor:       cfg.ReplicationFactor,
		CompressionEnabled:      cfg.CompressionEnabled,
		CompressionDelaySeconds: cfg.CompressionDelaySeconds,
		DedupeEnabled:           cfg.DedupeEnabled,
		FingerprintEnabled:      cfg.FingerprintEnabled,
	}, nil)
}

// ContainerExists implements Storage
func (c *StorageClient) ContainerExists(ctx context.Context, name string) (bool, error) {
	err := c.rest.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/containers/%s", name), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateProtectionDomain implements Storage
func (c *StorageClient) CreateProtectionDomain(ctx context.Context, name string) error {
	return c.rest.do(ctx, http.MethodPost, "/api/v1/protection_domains", map[string]string{"name": name}, nil)
}

// EnableStretch implements Storage
func (c *StorageClient) EnableStretch(ctx context.Context, params types.StretchParams) error {
	path := fmt.Sprintf("/api/v1/protection_domains/%s/stretch", params.ProtectionDomain)
	return c.rest.do(ctx, http.MethodPost, path, stretchRequest{
		LocalContainer:  params.LocalContainer,
		RemoteEndpoint:  params.RemoteEndpoint,
		RemoteContainer: params.RemoteContainer,
	}, nil)
}

// MountDatastore implements Storage
func (c *StorageClient) MountDatastore(ctx context.Context, mount types.DatastoreMount) error {
	path := fmt.Sprintf("/api/v1/containers/%s/datastores", mount.Container)
	return c.rest.do(ctx, http.MethodPost, path, mountRequest{Hosts: mount.Hosts}, nil)
}

var _ Storage = (*StorageClient)(nil)
