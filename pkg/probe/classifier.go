package probe

import (
	"strings"
	"time"

	"github.com/stratacluster/strata/pkg/types"
)

// Marker substrings in cluster status output that indicate a node or service
// is not fully up. A response containing any of them classifies as Degraded;
// anything else classifies as Healthy.
var degradedMarkers = []string{
	"state: down",
	"could not connect",
	"unreachable",
}

// Classify maps raw cluster status output to a health result. It is a pure
// function: reclassifying the same text always yields the same result.
func Classify(output string) types.HealthCheckResult {
	res := types.HealthCheckResult{
		State:     types.HealthHealthy,
		CheckedAt: time.Now(),
	}

	lowered := strings.ToLower(output)
	for _, marker := range degradedMarkers {
		if strings.Contains(lowered, marker) {
			res.State = types.HealthDegraded
			res.Reason = marker
			return res
		}
	}

	return res
}
