package sched

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalCores(t *testing.T) {
	n := LogicalCores()
	assert.GreaterOrEqual(t, n, 1)
}

func TestPin_CurrentThread(t *testing.T) {
	if runtime.GOOS != "linux" {
		err := Pin(0)
		assert.ErrorIs(t, err, ErrAffinityUnsupported)
		return
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	// Core 0 always exists.
	assert.NoError(t, Pin(0))
}
