package engine

import (
	"crypto/tls"

	"github.com/s00inx/ember/internal/tlsengine"
)

// TLSPool pairs a tlsengine.Session with the Provision at the same
// index: a parallel array of TLS session state, indexed by the same
// connection index as Pool. A slot is nil when its Provision is
// plaintext or unused.
type TLSPool struct {
	slots         []*tlsengine.Session
	cfg           *tls.Config
	recordBufSize int
}

// NewTLSPool allocates the parallel TLS slot array. cfg may be nil when
// the runtime never terminates TLS (Config.Security == SecurityPlain).
// recordBufSize bounds each session's plaintext read buffer once its
// handshake completes.
func NewTLSPool(size int, cfg *tls.Config, recordBufSize int) *TLSPool {
	return &TLSPool{slots: make([]*tlsengine.Session, size), cfg: cfg, recordBufSize: recordBufSize}
}

// Begin starts a new handshake session for index, replacing any prior
// one; Clear tears the slot down before reuse.
func (t *TLSPool) Begin(index int) *tlsengine.Session {
	s := tlsengine.NewServerSession(t.cfg, t.recordBufSize)
	t.slots[index] = s
	return s
}

// Get returns the session for index, or nil if the slot is unused.
func (t *TLSPool) Get(index int) *tlsengine.Session { return t.slots[index] }

// Clear releases and detaches the session at index.
func (t *TLSPool) Clear(index int) {
	if s := t.slots[index]; s != nil {
		s.Close()
		t.slots[index] = nil
	}
}
