package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testPoolConfig() Config {
	cfg := DefaultConfig()
	cfg.SizeConnectionsMax = 4
	cfg.NumHeaderMax = 4
	return cfg
}

func TestPool_BorrowReleaseBalance(t *testing.T) {
	p := NewPool(testPoolConfig())
	require.Equal(t, 4, p.Clean())
	require.Equal(t, 0, p.DirtyCount())

	a := p.Borrow(0)
	require.Equal(t, 3, p.Clean())
	require.Equal(t, 1, p.DirtyCount())

	b := p.Borrow(0)
	require.NotEqual(t, a.Index, b.Index)

	p.Release(a.Index)
	require.Equal(t, 1, p.DirtyCount())
	require.Equal(t, 3, p.Clean())
}

func TestPool_BorrowHintPrefersCleanSlotFromHint(t *testing.T) {
	p := NewPool(testPoolConfig())
	got := p.Borrow(2)
	require.Equal(t, 2, got.Index)
}

func TestPool_BorrowPanicsWhenFull(t *testing.T) {
	p := NewPool(testPoolConfig())
	for i := 0; i < p.Cap(); i++ {
		p.Borrow(0)
	}
	require.Equal(t, 0, p.Clean())
	require.Panics(t, func() { p.Borrow(0) })
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	p := NewPool(testPoolConfig())
	a := p.Borrow(0)
	p.Release(a.Index)
	p.Release(a.Index)
	require.Equal(t, p.Cap(), p.Clean())
}
