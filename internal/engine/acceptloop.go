package engine

import (
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/s00inx/ember/internal/socket"
)

// armAccept arms exactly one accept on the listening socket and records
// accept_queued = true.
func (rt *Runtime) armAccept() {
	rt.acceptQueued = true
	rt.armEpollOneshot(rt.listenFd, listenToken, unix.EPOLLIN)
}

// onAcceptReady handles the listening socket's oneshot readiness firing:
// it accepts exactly one connection, then decides whether to re-arm
// accept immediately or defer to the next close.
func (rt *Runtime) onAcceptReady() {
	rt.acceptQueued = false

	fd, _, err := unix.Accept4(rt.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	switch {
	case err != nil:
		rt.logger.Errorf("accept: %v", err)
	case fd < 0:
		rt.logger.Errorf("accept: invalid child socket")
	default:
		rt.onAccepted(fd)
	}

	// This worker has no separate task scheduler, so free pool slots
	// stand in directly for free task capacity.
	if rt.pool.Clean() >= 2 {
		rt.armAccept()
	}
}

// onAccepted borrows a Provision for a freshly accepted socket and
// begins its lifecycle: handshake under TLS, plain recv otherwise.
func (rt *Runtime) onAccepted(fd int) {
	if rt.pool.Clean() == 0 {
		// Accept backpressure (the headroom check above) should have
		// deferred re-arming before this could ever happen.
		panic("engine: accept succeeded against a full pool")
	}

	p := rt.pool.Borrow(rt.workerIndex)
	p.Socket = fd
	p.ConnID = uuid.New()

	if err := socket.DisableNagle(fd); err != nil {
		rt.logger.Errorf("conn=%s disable nagle: %v", p.ConnID, err)
	}
	if err := socket.SetNonblocking(fd); err != nil {
		rt.logger.Errorf("conn=%s set nonblocking: %v", p.ConnID, err)
		rt.doClose(p)
		return
	}

	if rt.cfg.Security == SecurityTLS {
		rt.beginHandshake(p)
	} else {
		rt.beginRecv(p)
	}
}

// beginHandshake sets a freshly accepted TLS connection's initial job to
// handshake(recv, 0).
func (rt *Runtime) beginHandshake(p *Provision) {
	rt.tlsPool.Begin(p.Index)
	p.Job = Job{Kind: JobHandshake, HandshakeDir: HandshakeDirRecv}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
}

// beginRecv sets a freshly accepted plain connection's initial job to
// recv(0).
func (rt *Runtime) beginRecv(p *Provision) {
	p.Stage = Stage{Kind: StageHeader}
	p.Job = Job{Kind: JobRecv}
	rt.armEpollOneshot(p.Socket, rt.tokenFor(p.Index), unix.EPOLLIN)
}
