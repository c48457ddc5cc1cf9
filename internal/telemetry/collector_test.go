package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostStatus(t *testing.T) {
	c := NewHostCollector(50 * time.Millisecond)

	status, err := c.HostStatus(context.Background())
	require.NoError(t, err)

	assert.Positive(t, status.Memory.Total)
	assert.LessOrEqual(t, status.Memory.Used, status.Memory.Total)
	assert.GreaterOrEqual(t, status.CPU, 0.0)
	assert.NotEmpty(t, status.OS.Platform)
	assert.NotEmpty(t, status.OS.Arch)
	for _, d := range status.Disk {
		assert.NotEmpty(t, d.FS)
		assert.LessOrEqual(t, d.Used, d.Size)
	}
}

func TestHostStatusCanceled(t *testing.T) {
	c := NewHostCollector(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.HostStatus(ctx)
	require.Error(t, err)
}

func TestHostProcessesIncludesSelf(t *testing.T) {
	c := NewHostCollector(0)
	assert.Equal(t, 200*time.Millisecond, c.CPUSample)

	procs, err := c.HostProcesses(context.Background())
	require.NoError(t, err)

	self := int32(os.Getpid())
	found := false
	for _, p := range procs {
		if p.Pid == self {
			found = true
			assert.NotEmpty(t, p.Name)
		}
	}
	assert.True(t, found, "own pid missing from process table")
}
