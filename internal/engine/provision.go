package engine

import (
	"github.com/google/uuid"

	"github.com/s00inx/ember/internal/arena"
	"github.com/s00inx/ember/internal/httpproto"
	"github.com/s00inx/ember/internal/router"
)

// StageKind is the request-assembly phase tracked on a Provision.
type StageKind int

const (
	StageHeader StageKind = iota
	StageBody
)

// Stage is `header` or `body(header_end_offset)`: which part of a
// request the connection is currently assembling.
type Stage struct {
	Kind      StageKind
	HeaderEnd int
}

// StatusKill is the sentinel response status: when a handler sets it,
// the state machine reaches the send boundary, closes the connection
// without emitting an HTTP response, and stops the runtime.
const StatusKill = -1

// Provision is the per-connection state record. Exactly
// size_connections_max of these are allocated once at startup and reused
// for the lifetime of the worker; Index is a stable identity used to
// pair a Provision with its TLS slot, never a transient handle.
type Provision struct {
	Index  int
	Socket int // OS fd, or -1 when invalid

	Buffer     []byte // fixed size_socket_buffer scratch; also Pseudoslice scratch
	RecvBuffer []byte // growable accumulator, len tracks bytes held, capped at size_request_max

	Arena *arena.Arena

	Request   httpproto.Request
	headerBuf []httpproto.Header // scratch for header parsing, sized num_header_max

	ResponseCode    int
	ResponseHeaders []httpproto.Header
	ResponseBody    []byte

	Captures []router.Capture
	Queries  []router.Capture

	Stage Stage
	Job   Job

	// Parked is true while a handler has taken over the connection: no
	// I/O is armed and Job does not reflect an outstanding op until
	// Trigger fires.
	Parked bool

	ConnID uuid.UUID // log-correlation only, never sent on the wire
}

// newProvision allocates one Provision's buffers up front, for the
// "allocated at startup" lifecycle of the pool.
func newProvision(index int, cfg Config) *Provision {
	return &Provision{
		Index:           index,
		Socket:          -1,
		Buffer:          make([]byte, cfg.SizeSocketBuffer),
		RecvBuffer:      make([]byte, 0, cfg.SizeRecvBufferRetain),
		Arena:           arena.New(cfg.SizeConnectionArenaRetain, cfg.SizeConnectionArenaRetain),
		headerBuf:       make([]httpproto.Header, cfg.NumHeaderMax),
		ResponseHeaders: make([]httpproto.Header, 0, 8),
		Captures:        make([]router.Capture, 0, cfg.NumCapturesMax),
		Queries:         make([]router.Capture, 0, cfg.NumQueriesMax),
	}
}

// resetForNextRequest is run when a send completes with SendAfter ==
// AfterRecv: the arena is reset with its retain bound, the receive
// buffer shrinks to its retain bound, and parse stage resets to header.
func (p *Provision) resetForNextRequest(cfg Config) {
	p.Arena.Reset()
	if cap(p.RecvBuffer) > cfg.SizeRecvBufferRetain {
		p.RecvBuffer = make([]byte, 0, cfg.SizeRecvBufferRetain)
	} else {
		p.RecvBuffer = p.RecvBuffer[:0]
	}
	p.Stage = Stage{Kind: StageHeader}
	p.Request = httpproto.Request{}
	p.ResponseHeaders = p.ResponseHeaders[:0]
	p.ResponseBody = nil
	p.ResponseCode = 0
	p.Captures = p.Captures[:0]
	p.Queries = p.Queries[:0]
}

// reclaim returns a Provision to its pristine, pool-owned state on close.
func (p *Provision) reclaim(cfg Config) {
	p.Socket = -1
	p.Job = Job{Kind: JobEmpty}
	p.Parked = false
	p.resetForNextRequest(cfg)
}

// appendToRecvBuffer grows RecvBuffer (bounded by size_request_max, which
// callers must have already checked) and copies data in.
func (p *Provision) appendToRecvBuffer(data []byte) {
	p.RecvBuffer = append(p.RecvBuffer, data...)
}
