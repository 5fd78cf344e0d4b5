package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProvision_ResetRetainsArenaBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SizeConnectionArenaRetain = 64
	cfg.SizeRecvBufferRetain = 32

	p := newProvision(0, cfg)
	p.Arena.Alloc(4096) // force growth well past the retain bound
	p.RecvBuffer = append(p.RecvBuffer, make([]byte, 4096)...)

	p.resetForNextRequest(cfg)

	require.LessOrEqual(t, p.Arena.Cap(), cfg.SizeConnectionArenaRetain)
	require.LessOrEqual(t, cap(p.RecvBuffer), cfg.SizeRecvBufferRetain)
	require.Equal(t, StageHeader, p.Stage.Kind)
	require.Empty(t, p.ResponseHeaders)
	require.Nil(t, p.ResponseBody)
}

func TestProvision_ReclaimClearsJobAndSocket(t *testing.T) {
	cfg := DefaultConfig()
	p := newProvision(0, cfg)
	p.Socket = 42
	p.Job = Job{Kind: JobSend}
	p.Parked = true

	p.reclaim(cfg)

	require.Equal(t, -1, p.Socket)
	require.Equal(t, JobEmpty, p.Job.Kind)
	require.False(t, p.Parked)
}
