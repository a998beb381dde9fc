package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratacluster/strata/pkg/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndListOperations(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ops := []Operation{
		{ID: "op-2", Kind: "maintenance_exit", Node: "hv-01", Status: types.OutcomeSuccess, StartedAt: base.Add(time.Hour)},
		{ID: "op-1", Kind: "maintenance_enter", Node: "hv-01", Status: types.OutcomeTimedOut, Cause: "health poll exhausted budget", StartedAt: base},
	}
	for _, op := range ops {
		require.NoError(t, j.RecordOperation(op))
	}

	listed, err := j.ListOperations()
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Records come back in start order regardless of insertion order.
	assert.Equal(t, "op-1", listed[0].ID)
	assert.Equal(t, "op-2", listed[1].ID)
	assert.Equal(t, types.OutcomeTimedOut, listed[0].Status)
	assert.Equal(t, "health poll exhausted budget", listed[0].Cause)
}

func TestRecordAndListTransitions(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	transitions := []Transition{
		{OperationID: "op-1", Node: "hv-01", Phase: types.PhaseDraining, At: base},
		{OperationID: "op-1", Node: "hv-01", Phase: types.PhaseMaintenance, At: base.Add(5 * time.Minute)},
		{OperationID: "op-2", Node: "hv-02", Phase: types.PhaseRestoring, At: base.Add(time.Minute)},
	}
	for _, tr := range transitions {
		require.NoError(t, j.RecordTransition(tr))
	}

	trs, err := j.ListTransitions("op-1")
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, types.PhaseDraining, trs[0].Phase)
	assert.Equal(t, types.PhaseMaintenance, trs[1].Phase)

	trs, err = j.ListTransitions("op-9")
	require.NoError(t, err)
	assert.Empty(t, trs)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Reopen and read back.
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	ops, err := j.ListOperations()
	require.NoError(t, err)
	assert.Empty(t, ops)
}
