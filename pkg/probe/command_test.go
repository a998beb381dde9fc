package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratacluster/strata/pkg/types"
)

func TestNewCommandProbeValidation(t *testing.T) {
	_, err := NewCommandProbe(nil, time.Second)
	assert.Error(t, err)

	p, err := NewCommandProbe([]string{"true"}, 0)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

// TestCheckClassifiesOutput runs a real command so the full spawn, capture
// and classify path is exercised
func TestCheckClassifiesOutput(t *testing.T) {
	p, err := NewCommandProbe([]string{"echo", "stargate state: down on"}, 5*time.Second)
	require.NoError(t, err)

	res := p.Check(context.Background(), "10.0.0.5")
	assert.Equal(t, types.HealthDegraded, res.State)
	assert.Equal(t, "state: down", res.Reason)
}

func TestCheckHealthyOutput(t *testing.T) {
	p, err := NewCommandProbe([]string{"echo", "all services up for"}, 5*time.Second)
	require.NoError(t, err)

	res := p.Check(context.Background(), "10.0.0.5")
	assert.Equal(t, types.HealthHealthy, res.State)
}

// TestCheckUnreachable verifies a session that cannot be established maps to
// Unreachable rather than an error
func TestCheckUnreachable(t *testing.T) {
	p, err := NewCommandProbe([]string{"/nonexistent/strata-status"}, time.Second)
	require.NoError(t, err)

	res := p.Check(context.Background(), "10.0.0.5")
	assert.Equal(t, types.HealthUnreachable, res.State)
	assert.NotEmpty(t, res.Reason)
}
