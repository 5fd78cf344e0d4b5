// Package engine implements the per-connection job state machine, its
// supporting Provision/Pool/TLSPool data model, the accept loop, and the
// response dispatcher. Everything else (router matching, header parsing,
// TLS record handling, response rendering) is consumed through the
// interfaces defined in the internal/router, internal/httpproto and
// internal/tlsengine packages.
package engine

import "crypto/tls"

// Security selects whether a Runtime terminates TLS on accepted
// connections.
type Security int

const (
	SecurityPlain Security = iota
	SecurityTLS
)

// Config holds the runtime's tunables. Callers only need to override
// what they care about; DefaultConfig fills in sane values for the rest.
type Config struct {
	Addr string // "host:port" to listen on

	SizeBacklog               int
	SizeConnectionsMax        int
	SizeCompletionsReapMax    int
	SizeConnectionArenaRetain int
	SizeRecvBufferRetain      int
	SizeSocketBuffer          int
	SizeRecvBufferMax         int
	SizeRequestMax            int
	SizeRequestURIMax         int
	NumHeaderMax              int
	NumCapturesMax            int
	NumQueriesMax             int

	Security Security
	TLS      *tls.Config // required when Security == SecurityTLS

	// Workers is the number of single-threaded worker runtimes, each with
	// its own listening socket on the shared port via SO_REUSEPORT. 0
	// selects runtime.NumCPU().
	Workers int
}

// DefaultConfig returns a Config populated with sane defaults.
func DefaultConfig() Config {
	return Config{
		SizeBacklog:               512,
		SizeConnectionsMax:        1024,
		SizeCompletionsReapMax:    256,
		SizeConnectionArenaRetain: 1024,
		SizeRecvBufferRetain:      1024,
		SizeSocketBuffer:          4096,
		SizeRecvBufferMax:         2 << 20,
		SizeRequestMax:            2 << 20,
		SizeRequestURIMax:         2 << 10,
		NumHeaderMax:              32,
		NumCapturesMax:            8,
		NumQueriesMax:             8,
		Security:                  SecurityPlain,
	}
}

// tlsRecordBufferSize is the internal TLS plaintext read buffer size: 2x
// the socket buffer, sized to hold a full decrypted record plus headroom
// for TLS's own framing overhead.
func (c Config) tlsRecordBufferSize() int {
	return 2 * c.SizeSocketBuffer
}
