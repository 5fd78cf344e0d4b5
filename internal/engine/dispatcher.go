package engine

import (
	"golang.org/x/sys/unix"

	"github.com/s00inx/ember/internal/httpproto"
	"github.com/s00inx/ember/internal/pseudoslice"
)

// renderResponse writes status line + headers + Content-Length into the
// Provision's socket buffer, growing it if the rendered header block
// would not fit. Growing is a cold path: default-sized responses always
// fit in size_socket_buffer.
func renderResponse(p *Provision) (header []byte) {
	body := p.ResponseBody
	needed := estimateHeaderSize(p.ResponseHeaders)
	if needed > cap(p.Buffer) {
		p.Buffer = make([]byte, needed)
	}
	n := httpproto.RenderHeadersInto(p.Buffer[:cap(p.Buffer)], p.ResponseCode, p.ResponseHeaders, len(body))
	return p.Buffer[:n:n]
}

func estimateHeaderSize(headers []httpproto.Header) int {
	n := len("HTTP/1.1 431 Request Header Fields Too Large\r\n") + len("Content-Length: 18446744073709551615\r\n") + 2
	for _, h := range headers {
		n += len(h.Key) + len(h.Val) + 4
	}
	return n
}

// dispatchResponse renders the finalized response on p, builds the
// Pseudoslice, and arms the send pipeline. after/next describe what
// should happen once the send completes (return to recv, or run a
// handler-supplied continuation for the spawned/streaming case).
func (rt *Runtime) dispatchResponse(p *Provision, after SendAfter, next func(p *Provision)) {
	if p.ResponseCode == StatusKill {
		rt.armKill(p)
		return
	}

	rt.logger.Debugf("conn=%s status=%d method=%s path=%s", p.ConnID, p.ResponseCode, p.Request.Method, p.Request.Path)

	header := renderResponse(p)
	body := p.ResponseBody
	p.ResponseHeaders = p.ResponseHeaders[:0]

	slice := pseudoslice.New(header, body, p.Buffer)

	p.Job = Job{
		Kind:      JobSend,
		SendSlice: slice,
		SendCount: 0,
		SendIsTLS: rt.security() == SecurityTLS,
		SendAfter: after,
	}
	if after == AfterTrigger {
		p.Job.SendTrigger = next
	}

	rt.armSendStart(p)
}

// armSendStart enters the send state: under TLS, pre-encrypt the first
// plaintext window and arm the ciphertext; under plain, arm the
// plaintext window directly.
func (rt *Runtime) armSendStart(p *Provision) {
	if p.Job.SendIsTLS {
		window := p.Job.SendSlice.Get(0, rt.cfg.SizeSocketBuffer)
		p.Job.SendCount = len(window)

		session := rt.tlsPool.Get(p.Index)
		encrypted, err := session.Encrypt(window)
		if err != nil {
			rt.doClose(p)
			return
		}
		p.Job.SendEncrypted = encrypted
		p.Job.SendEncryptedCount = 0
	}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
}

// armKill records that this connection's send boundary observed the
// sentinel Kill status: no bytes go on the wire, the worker stops as
// soon as the current event loop iteration returns.
func (rt *Runtime) armKill(p *Provision) {
	rt.stopped = true
	rt.doClose(p)
}
