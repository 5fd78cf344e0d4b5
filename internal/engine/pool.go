package engine

import "fmt"

// Pool is the fixed-capacity Provision pool: a flat array of Provisions
// with a dirty bitset, created once at startup and reused for the
// worker's lifetime. Release is O(1); Borrow scans from its hint for the
// first clean slot, which is O(n) in the worst case. A single worker is
// single-threaded, so no atomics are needed here.
type Pool struct {
	provisions []*Provision
	dirty      []bool
	cleanCount int
}

// NewPool allocates cfg.SizeConnectionsMax Provisions up front.
func NewPool(cfg Config) *Pool {
	p := &Pool{
		provisions: make([]*Provision, cfg.SizeConnectionsMax),
		dirty:      make([]bool, cfg.SizeConnectionsMax),
		cleanCount: cfg.SizeConnectionsMax,
	}
	for i := range p.provisions {
		p.provisions[i] = newProvision(i, cfg)
	}
	return p
}

// Cap returns the pool's fixed capacity.
func (p *Pool) Cap() int { return len(p.provisions) }

// Clean returns the number of free slots.
func (p *Pool) Clean() int { return p.cleanCount }

// DirtyCount returns the number of slots with a non-empty job, exposed
// for the pool-balance invariant tests.
func (p *Pool) DirtyCount() int { return len(p.provisions) - p.cleanCount }

// At returns the Provision at a stable index, e.g. to pair with a
// TLSSlot.
func (p *Pool) At(index int) *Provision { return p.provisions[index] }

// Borrow returns the first clean slot, optionally biased by hint (worker
// index, for locality). It asserts the pool is not full: accept
// backpressure must have deferred re-arming before this is ever called
// on a full pool.
func (p *Pool) Borrow(hint int) *Provision {
	if p.cleanCount == 0 {
		panic(fmt.Sprintf("engine: Borrow called on a full pool (cap=%d)", len(p.provisions)))
	}
	n := len(p.provisions)
	if hint < 0 || hint >= n {
		hint = 0
	}
	for i := 0; i < n; i++ {
		idx := (hint + i) % n
		if !p.dirty[idx] {
			p.dirty[idx] = true
			p.cleanCount--
			return p.provisions[idx]
		}
	}
	panic("engine: pool bookkeeping inconsistent: cleanCount > 0 but no clean slot found")
}

// Release clears the dirty bit for index.
func (p *Pool) Release(index int) {
	if p.dirty[index] {
		p.dirty[index] = false
		p.cleanCount++
	}
}

// IsDirty reports whether the pool considers index in use.
func (p *Pool) IsDirty(index int) bool { return p.dirty[index] }
