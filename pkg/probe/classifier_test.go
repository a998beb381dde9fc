package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stratacluster/strata/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		state  types.HealthState
		reason string
	}{
		{
			name:   "all services up",
			output: "CVM: 10.0.0.5 Up\n  zeus   UP [3245]\n  cassandra UP [3301]\n",
			state:  types.HealthHealthy,
		},
		{
			name:   "service down",
			output: "CVM: 10.0.0.5 Up\n  stargate state: down\n",
			state:  types.HealthDegraded,
			reason: "state: down",
		},
		{
			name:   "connection refused banner",
			output: "Could not connect to 10.0.0.5: connection refused",
			state:  types.HealthDegraded,
			reason: "could not connect",
		},
		{
			name:   "host unreachable banner",
			output: "host 10.0.0.5 is UNREACHABLE",
			state:  types.HealthDegraded,
			reason: "unreachable",
		},
		{
			name:   "mixed case marker",
			output: "stargate State: Down retrying",
			state:  types.HealthDegraded,
			reason: "state: down",
		},
		{
			name:   "empty output",
			output: "",
			state:  types.HealthHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.output)
			assert.Equal(t, tt.state, res.State)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

// TestClassifyPure verifies reclassifying the same text yields the same state
func TestClassifyPure(t *testing.T) {
	output := "stargate state: down"
	first := Classify(output)
	second := Classify(output)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Reason, second.Reason)
}
