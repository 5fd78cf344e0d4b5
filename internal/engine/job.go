package engine

import "github.com/s00inx/ember/internal/pseudoslice"

// JobKind is the discriminant of the Provision job tagged union. Every
// completion callback asserts the variant it expects before touching
// the corresponding fields — see assertJob in errors.go.
type JobKind int

const (
	JobEmpty JobKind = iota
	JobHandshake
	JobRecv
	JobSend
	JobClose
)

func (k JobKind) String() string {
	switch k {
	case JobEmpty:
		return "empty"
	case JobHandshake:
		return "handshake"
	case JobRecv:
		return "recv"
	case JobSend:
		return "send"
	case JobClose:
		return "close"
	default:
		return "unknown"
	}
}

// HandshakeDir is the current leg of a TLS handshake: whether the engine
// is waiting to receive more handshake bytes or waiting to flush
// produced ones.
type HandshakeDir int

const (
	HandshakeDirRecv HandshakeDir = iota
	HandshakeDirSend
)

// SendAfter names what to do once a send job completes: return to recv,
// or hand control to a handler-supplied continuation installed via
// Trigger.SendThen.
type SendAfter int

const (
	AfterRecv SendAfter = iota
	AfterTrigger
)

// Job is the tagged union of in-flight I/O state for one Provision. Only
// the fields matching Kind are meaningful; ConnectionSM methods assert
// Kind before reading them.
type Job struct {
	Kind JobKind

	// JobHandshake
	HandshakeDir     HandshakeDir
	HandshakeCount   int
	HandshakePending []byte // outbound handshake bytes not yet fully flushed
	HandshakeSent    int

	// JobRecv
	RecvCount int

	// JobSend
	SendSlice          pseudoslice.Pseudoslice
	SendCount          int
	SendIsTLS          bool
	SendEncrypted      []byte
	SendEncryptedCount int
	SendAfter          SendAfter
	// SendTrigger fires once a JobSend with SendAfter == AfterTrigger
	// completes, letting a handler resume after its own response has
	// been fully flushed.
	SendTrigger func(p *Provision)
}
