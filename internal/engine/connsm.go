package engine

import (
	"bytes"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/s00inx/ember/internal/httpproto"
	"github.com/s00inx/ember/internal/router"
	"github.com/s00inx/ember/internal/tlsengine"
)

// --- handshake leg ---

func (rt *Runtime) onHandshakeReady(p *Provision) {
	assertJob(p, JobHandshake)
	session := rt.tlsPool.Get(p.Index)

	switch p.Job.HandshakeDir {
	case HandshakeDirRecv:
		n, err := unix.Read(p.Socket, p.Buffer)
		if err != nil || n <= 0 {
			rt.doClose(p)
			return
		}
		if rt.bumpHandshakeCount(p) {
			return
		}
		reply, err := session.Step(p.Buffer[:n])
		if err != nil {
			rt.doClose(p)
			return
		}
		rt.applyHandshakeReply(p, reply)

	case HandshakeDirSend:
		pending := p.Job.HandshakePending[p.Job.HandshakeSent:]
		n, err := unix.Write(p.Socket, pending)
		if err != nil || n <= 0 {
			rt.doClose(p)
			return
		}
		p.Job.HandshakeSent += n
		if p.Job.HandshakeSent < len(p.Job.HandshakePending) {
			rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
			return
		}
		if rt.bumpHandshakeCount(p) {
			return
		}
		reply, err := session.Step(nil)
		if err != nil {
			rt.doClose(p)
			return
		}
		rt.applyHandshakeReply(p, reply)
	}
}

// bumpHandshakeCount enforces the 50-cycle handshake guard, closing
// connections that never make progress. Returns true if it closed the
// connection.
func (rt *Runtime) bumpHandshakeCount(p *Provision) bool {
	p.Job.HandshakeCount++
	if p.Job.HandshakeCount >= 50 {
		rt.doClose(p)
		return true
	}
	return false
}

func (rt *Runtime) applyHandshakeReply(p *Provision, reply tlsengine.Reply) {
	switch reply.Kind {
	case tlsengine.RecvBuf:
		p.Job.HandshakeDir = HandshakeDirRecv
		rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
	case tlsengine.SendBuf:
		p.Job.HandshakeDir = HandshakeDirSend
		p.Job.HandshakePending = reply.Data
		p.Job.HandshakeSent = 0
		rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
	case tlsengine.Complete:
		rt.beginRecv(p)
	}
}

// --- recv leg ---

func (rt *Runtime) onRecvReady(p *Provision) {
	assertJob(p, JobRecv)

	n, err := unix.Read(p.Socket, p.Buffer)
	if err != nil || n <= 0 {
		rt.doClose(p)
		return
	}

	var plain []byte
	if rt.security() == SecurityTLS {
		session := rt.tlsPool.Get(p.Index)
		decoded, derr := session.Decrypt(p.Buffer[:n])
		if derr != nil {
			rt.doClose(p)
			return
		}
		plain = decoded
	} else {
		plain = p.Buffer[:n]
	}

	p.Job.RecvCount += n
	if p.Job.RecvCount >= rt.cfg.SizeRequestMax {
		rt.respondError(p, 413, "413 Content Too Large")
		return
	}

	switch p.Stage.Kind {
	case StageHeader:
		rt.assembleHeaderStage(p, plain)
	case StageBody:
		rt.assembleBodyStage(p, plain)
	}
}

// findHeaderEnd searches buf[start:] for the CRLFCRLF terminator,
// returning the absolute offset of the first byte after it, or -1.
// start lets the caller re-search only the last few bytes of the
// previous chunk plus the new one, so a terminator split across two
// recv completions is still found.
func findHeaderEnd(buf []byte, start int) int {
	idx := bytes.Index(buf[start:], []byte("\r\n\r\n"))
	if idx == -1 {
		return -1
	}
	return start + idx + 4
}

func (rt *Runtime) assembleHeaderStage(p *Provision, plain []byte) {
	start := len(p.RecvBuffer) - 4
	if start < 0 {
		start = 0
	}
	p.appendToRecvBuffer(plain)
	if len(p.RecvBuffer) > rt.cfg.SizeRequestMax {
		rt.respondError(p, 413, "413 Content Too Large")
		return
	}

	headerEnd := findHeaderEnd(p.RecvBuffer, start)
	if headerEnd < 0 {
		rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
		return
	}

	if err := httpproto.ParseHeaders(p.RecvBuffer[:headerEnd], p.headerBuf, rt.cfg.SizeRequestURIMax, &p.Request); err != nil {
		rt.respondParseError(p, err)
		return
	}

	if httpproto.IsHTTP11(&p.Request) {
		if _, ok := p.Request.Header("Host"); !ok {
			rt.respondError(p, 400, `Missing "Host" Header`)
			return
		}
	}

	if !httpproto.MethodExpectsBody(p.Request.Method) {
		rt.route(p)
		return
	}

	length, err := httpproto.RequiredContentLength(&p.Request, true)
	if err != nil {
		rt.respondParseError(p, err)
		return
	}

	haveAfterHeader := len(p.RecvBuffer) - headerEnd
	switch {
	case haveAfterHeader == length:
		p.Request.Body = p.RecvBuffer[headerEnd : headerEnd+length]
		rt.route(p)
	case haveAfterHeader < length:
		p.Stage = Stage{Kind: StageBody, HeaderEnd: headerEnd}
		rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
	default:
		// haveAfterHeader > length: an adversarial or buggy client
		// pipelined extra bytes past its own declared Content-Length.
		rt.respondError(p, 400, "400 Bad Request")
	}
}

func (rt *Runtime) assembleBodyStage(p *Provision, plain []byte) {
	p.appendToRecvBuffer(plain)
	if len(p.RecvBuffer) > rt.cfg.SizeRequestMax {
		rt.respondError(p, 413, "413 Content Too Large")
		return
	}

	length, err := httpproto.RequiredContentLength(&p.Request, true)
	if err != nil {
		rt.respondParseError(p, err)
		return
	}

	headerEnd := p.Stage.HeaderEnd
	requestLength := headerEnd + length
	if requestLength > rt.cfg.SizeRequestMax {
		rt.respondError(p, 413, "413 Content Too Large")
		return
	}

	if len(p.RecvBuffer) >= requestLength {
		p.Request.Body = p.RecvBuffer[headerEnd:requestLength]
		rt.route(p)
		return
	}

	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
}

// respondParseError maps a typed httpproto parse failure onto its
// status code.
func (rt *Runtime) respondParseError(p *Provision, err error) {
	switch {
	case errors.Is(err, httpproto.ErrTooManyHeaders):
		rt.respondError(p, 431, "431 Request Header Fields Too Large")
	case errors.Is(err, httpproto.ErrURITooLong):
		rt.respondError(p, 414, "414 URI Too Long")
	case errors.Is(err, httpproto.ErrInvalidMethod):
		rt.respondError(p, 501, "501 Not Implemented")
	case errors.Is(err, httpproto.ErrHTTPVersionNotSupported):
		rt.respondError(p, 505, "505 HTTP Version Not Supported")
	case errors.Is(err, httpproto.ErrLengthRequired):
		rt.respondError(p, 411, "411 Length Required")
	default:
		rt.respondError(p, 400, "400 Bad Request")
	}
}

// respondError sets a plain-text error response and runs it through the
// dispatcher. Error bodies are static strings, never allocated in the
// connection arena — nothing about them varies per request.
func (rt *Runtime) respondError(p *Provision, code int, body string) {
	p.ResponseCode = code
	p.ResponseBody = []byte(body)
	rt.dispatchResponse(p, AfterRecv, nil)
}

// --- route step ---

func (rt *Runtime) route(p *Provision) {
	result, captures := rt.router.Match(p.Request.Method, p.Request.Path, p.Captures[:0])
	p.Captures = captures

	if !result.Matched {
		rt.respondError(p, 404, "404 Not Found")
		return
	}
	if !result.HasHandler {
		rt.respondMethodNotAllowed(p, result.Methods)
		return
	}

	p.Queries = router.ParseQuery(p.Request.RawQuery, p.Queries[:0])

	ctx := newContext(p, rt)
	result.Handler(ctx)

	if p.Parked {
		return // handler took over; it owns the Trigger call from here.
	}
	rt.dispatchResponse(p, AfterRecv, nil)
}

func (rt *Runtime) respondMethodNotAllowed(p *Provision, methods []string) {
	sorted := append([]string(nil), methods...)
	sort.Strings(sorted)
	allow := p.Arena.AllocString(strings.Join(sorted, ", "))

	p.ResponseCode = 405
	p.ResponseHeaders = append(p.ResponseHeaders, httpproto.Header{
		Key: p.Arena.AllocString("Allow"),
		Val: allow,
	})
	p.ResponseBody = []byte("405 Method Not Allowed")
	rt.dispatchResponse(p, AfterRecv, nil)
}

// --- send leg ---

func (rt *Runtime) onSendReady(p *Provision) {
	assertJob(p, JobSend)
	if p.Job.SendIsTLS {
		rt.onSendReadyTLS(p)
		return
	}
	rt.onSendReadyPlain(p)
}

func (rt *Runtime) onSendReadyPlain(p *Provision) {
	window := p.Job.SendSlice.Get(p.Job.SendCount, p.Job.SendCount+rt.cfg.SizeSocketBuffer)
	n, err := unix.Write(p.Socket, window)
	if err != nil || n <= 0 {
		rt.doClose(p)
		return
	}
	p.Job.SendCount += n
	if p.Job.SendCount >= p.Job.SendSlice.Len() {
		rt.completeSend(p)
		return
	}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
}

func (rt *Runtime) onSendReadyTLS(p *Provision) {
	n, err := unix.Write(p.Socket, p.Job.SendEncrypted[p.Job.SendEncryptedCount:])
	if err != nil || n <= 0 {
		rt.doClose(p)
		return
	}
	p.Job.SendEncryptedCount += n
	if p.Job.SendEncryptedCount < len(p.Job.SendEncrypted) {
		rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
		return
	}
	if p.Job.SendCount >= p.Job.SendSlice.Len() {
		rt.completeSend(p)
		return
	}

	window := p.Job.SendSlice.Get(p.Job.SendCount, p.Job.SendCount+rt.cfg.SizeSocketBuffer)
	p.Job.SendCount += len(window)

	session := rt.tlsPool.Get(p.Index)
	encrypted, err := session.Encrypt(window)
	if err != nil {
		rt.doClose(p)
		return
	}
	p.Job.SendEncrypted = encrypted
	p.Job.SendEncryptedCount = 0
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLOUT)
}

// completeSend runs the send job's "after" continuation.
func (rt *Runtime) completeSend(p *Provision) {
	switch p.Job.SendAfter {
	case AfterRecv:
		rt.finishRequestCycle(p)
	case AfterTrigger:
		trigger := p.Job.SendTrigger
		p.Job = Job{Kind: JobEmpty}
		p.Parked = true
		if trigger != nil {
			trigger(p)
		} else {
			rt.finishRequestCycle(p)
		}
	}
}

// finishRequestCycle implements the "after = recv" continuation:
// arena reset with retain limit, recv_buffer shrunk, back to recv(0).
func (rt *Runtime) finishRequestCycle(p *Provision) {
	p.resetForNextRequest(rt.cfg)
	p.Job = Job{Kind: JobRecv}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
}

// armRecvAfterSpawn re-arms recv on a parked connection.
func (rt *Runtime) armRecvAfterSpawn(p *Provision) {
	p.Job = Job{Kind: JobRecv}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
}

// --- close leg ---

func (rt *Runtime) doClose(p *Provision) {
	if p.Socket >= 0 {
		_ = unix.EpollCtl(rt.epollFd, unix.EPOLL_CTL_DEL, p.Socket, nil)
		_ = unix.Close(p.Socket)
	}
	if rt.security() == SecurityTLS {
		rt.tlsPool.Clear(p.Index)
	}

	idx := p.Index
	p.reclaim(rt.cfg)
	rt.pool.Release(idx)

	if !rt.acceptQueued {
		rt.armAccept()
	}
}
