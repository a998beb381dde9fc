package controlplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stratacluster/strata/pkg/types"
)

// InfrastructureClient talks to the hypervisor management endpoint
type InfrastructureClient struct {
	rest *restClient
}

// NewInfrastructureClient constructs a client and verifies the endpoint
// answers before returning
func NewInfrastructureClient(ctx context.Context, ep Endpoint, timeout time.Duration) (*InfrastructureClient, error) {
	c := &InfrastructureClient{rest: newRESTClient(ep, timeout)}
	if err := c.rest.verify(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type hostStateRequest struct {
	State    string `json:"state"`
	Evacuate bool   `json:"evacuate"`
}

type hostResponse struct {
	ConnectionState string `json:"connection_state"`
}

// SetNodeState implements Infrastructure
func (c *InfrastructureClient) SetNodeState(ctx context.Context, node *types.Node, state types.ConnectionState, evacuate bool) error {
	path := fmt.Sprintf("/api/v1/hosts/%s/state", node.ID)
	return c.rest.do(ctx, http.MethodPut, path, hostStateRequest{
		State:    string(state),
		Evacuate: evacuate,
	}, nil)
}

// GetConnectionState implements Infrastructure
func (c *InfrastructureClient) GetConnectionState(ctx context.Context, node *types.Node) (types.ConnectionState, error) {
	var resp hostResponse
	path := fmt.Sprintf("/api/v1/hosts/%s", node.ID)
	if err := c.rest.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return types.ConnectionUnknown, err
	}

	switch types.ConnectionState(resp.ConnectionState) {
	case types.ConnectionConnected, types.ConnectionMaintenance, types.ConnectionDisconnected:
		return types.ConnectionState(resp.ConnectionState), nil
	default:
		return types.ConnectionUnknown, nil
	}
}

var _ Infrastructure = (*InfrastructureClient)(nil)
