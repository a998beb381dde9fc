package controlplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// WorkloadClient talks to the guest VM management endpoint
type WorkloadClient struct {
	rest *restClient
}

// NewWorkloadClient constructs a client and verifies the endpoint answers
// before returning
func NewWorkloadClient(ctx context.Context, ep Endpoint, timeout time.Duration) (*WorkloadClient, error) {
	c := &WorkloadClient{rest: newRESTClient(ep, timeout)}
	if err := c.rest.verify(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type guestResponse struct {
	IPAddress string `json:"ip_address"`
}

// StopGuest implements Workload
func (c *WorkloadClient) StopGuest(ctx context.Context, vmID string) error {
	return c.rest.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/vms/%s/stop", vmID), nil, nil)
}

// StartGuest implements Workload
func (c *WorkloadClient) StartGuest(ctx context.Context, vmID string) error {
	return c.rest.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/vms/%s/start", vmID), nil, nil)
}

// GetGuestAddress implements Workload. A guest that holds no address is
// reported as absent, not as an error; a powered-off controller VM is the
// expected state during drain.
func (c *WorkloadClient) GetGuestAddress(ctx context.Context, vmID string) (string, bool, error) {
	var resp guestResponse
	err := c.rest.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/vms/%s", vmID), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if resp.IPAddress == "" {
		return "", false, nil
	}
	return resp.IPAddress, true, nil
}

var _ Workload = (*WorkloadClient)(nil)
