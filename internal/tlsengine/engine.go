// Package tlsengine adapts stdlib crypto/tls onto a synchronous,
// buffer-in/buffer-out shape so the connection state machine can drive it
// from discrete recv/send completions rather than owning a net.Conn's
// read loop. Session bridges that gap with a pipeConn (see pipeconn.go)
// that stands in for the network and a background goroutine that runs
// the real *tls.Conn against it.
package tlsengine

import "crypto/tls"

// defaultRecordBufferSize is used when a Session is built without an
// explicit plaintext read buffer size.
const defaultRecordBufferSize = 16 * 1024

// ReplyKind is the TLS engine's answer to a Step call during handshake:
// whether the caller should arm a recv, flush a send, or move on because
// the handshake finished.
type ReplyKind int

const (
	RecvBuf ReplyKind = iota
	SendBuf
	Complete
)

// Reply is the outcome of one Step call.
type Reply struct {
	Kind ReplyKind
	Data []byte // populated when Kind == SendBuf
}

// Session is one TLS record-layer session, paired index-for-index with a
// Provision by the caller.
type Session struct {
	conn          *tls.Conn
	pipe          *pipeConn
	doneCh        chan error
	done          bool
	plainCh       chan plainResult
	readerRun     bool
	recordBufSize int
}

type plainResult struct {
	data []byte
	err  error
}

// NewServerSession creates a TLS session for a freshly accepted
// connection, wrapping cfg (the caller's certificate/key material).
// recordBufSize bounds the plaintext read buffer used once the handshake
// completes; a value <= 0 falls back to defaultRecordBufferSize.
func NewServerSession(cfg *tls.Config, recordBufSize int) *Session {
	if recordBufSize <= 0 {
		recordBufSize = defaultRecordBufferSize
	}
	pc := newPipeConn()
	s := &Session{
		pipe:          pc,
		conn:          tls.Server(pc, cfg),
		doneCh:        make(chan error, 1),
		plainCh:       make(chan plainResult, 8),
		recordBufSize: recordBufSize,
	}
	go func() {
		s.doneCh <- s.conn.Handshake()
	}()
	return s
}

// Step delivers input (bytes just received off the wire, or nil to just
// check for progress) to the handshake and reports what the state
// machine should arm next.
func (s *Session) Step(input []byte) (Reply, error) {
	if len(input) > 0 {
		s.pipe.Feed(input)
	}
	if s.done {
		return Reply{Kind: Complete}, nil
	}
	for {
		if out := s.pipe.DrainOutbound(); len(out) > 0 {
			return Reply{Kind: SendBuf, Data: out}, nil
		}
		select {
		case err := <-s.doneCh:
			s.done = true
			if err != nil {
				return Reply{}, err
			}
			if out := s.pipe.DrainOutbound(); len(out) > 0 {
				return Reply{Kind: SendBuf, Data: out}, nil
			}
			s.startReader()
			return Reply{Kind: Complete}, nil
		case <-s.pipe.wroteSignal:
			continue
		case <-s.pipe.blockedSignal:
			return Reply{Kind: RecvBuf}, nil
		}
	}
}

// startReader launches the steady-state plaintext reader once, used by
// Decrypt after the handshake completes.
func (s *Session) startReader() {
	if s.readerRun {
		return
	}
	s.readerRun = true
	go func() {
		buf := make([]byte, s.recordBufSize)
		for {
			n, err := s.conn.Read(buf)
			data := append([]byte(nil), buf[:n]...)
			s.plainCh <- plainResult{data: data, err: err}
			if err != nil {
				return
			}
		}
	}()
}

// Decrypt feeds ciphertext bytes received off the wire and returns
// whatever plaintext is immediately decodable: 0..N plaintext bytes per
// recv completion, since a partial TLS record yields zero.
func (s *Session) Decrypt(cipher []byte) ([]byte, error) {
	if len(cipher) > 0 {
		s.pipe.Feed(cipher)
	}
	var out []byte
	<-s.pipe.blockedSignal // reader has drained everything currently available
	for {
		select {
		case r := <-s.plainCh:
			if r.err != nil {
				return out, r.err
			}
			out = append(out, r.data...)
		default:
			return out, nil
		}
	}
}

// Encrypt seals plaintext into one or more TLS records and returns the
// ciphertext ready to send.
func (s *Session) Encrypt(plain []byte) ([]byte, error) {
	if _, err := s.conn.Write(plain); err != nil {
		return nil, err
	}
	return s.pipe.DrainOutbound(), nil
}

// Close releases the session's background goroutines.
func (s *Session) Close() {
	s.pipe.Close()
}
