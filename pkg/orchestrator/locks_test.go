package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRegistry(t *testing.T) {
	r := newLockRegistry()

	release, err := r.tryAcquire("node-1")
	require.NoError(t, err)

	_, err = r.tryAcquire("node-1")
	assert.ErrorIs(t, err, ErrNodeBusy)

	// Other nodes are independent.
	otherRelease, err := r.tryAcquire("node-2")
	require.NoError(t, err)
	otherRelease()

	release()
	release() // idempotent

	release2, err := r.tryAcquire("node-1")
	require.NoError(t, err)
	release2()
}
