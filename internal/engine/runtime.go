package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/s00inx/ember/internal/router"
	"github.com/s00inx/ember/internal/socket"
)

// listenToken is the epoll user-data value reserved for the listening
// socket; every accepted connection's token is its Provision index + 1,
// so 0 never collides with a real connection.
const listenToken = int32(0)

// Runtime is one worker's independent event loop: its own epoll
// instance, connection pool, TLS slots and accept-armed flag. Workers
// share no mutable state, so each runs single-threaded with no locking
// between them.
type Runtime struct {
	cfg    Config
	router *router.Router[Handler]
	logger Logger

	epollFd  int
	listenFd int

	pool    *Pool
	tlsPool *TLSPool

	acceptQueued bool
	workerIndex  int
	stopped      bool
}

// NewRuntime builds one worker's runtime around an already-listening
// socket, listenFd. Workers each bring their own listening socket bound
// to the same port via SO_REUSEPORT; each caller passes its own
// workerIndex for accept-hint locality.
func NewRuntime(cfg Config, listenFd int, rtr *router.Router[Handler], logger Logger, workerIndex int) (*Runtime, error) {
	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("engine: epoll_create1: %w", err)
	}

	rt := &Runtime{
		cfg:         cfg,
		router:      rtr,
		logger:      logger,
		epollFd:     epollFd,
		listenFd:    listenFd,
		pool:        NewPool(cfg),
		workerIndex: workerIndex,
	}
	if cfg.Security == SecurityTLS {
		rt.tlsPool = NewTLSPool(cfg.SizeConnectionsMax, cfg.TLS, cfg.tlsRecordBufferSize())
	}
	return rt, nil
}

// ListenAndBuildRuntime is a convenience path for the single-worker
// case: it creates the listening socket itself instead of taking an
// existing fd. The Server facade does not use it.
func ListenAndBuildRuntime(cfg Config, rtr *router.Router[Handler], logger Logger) (*Runtime, error) {
	addr, port, err := socket.ParseIPv4(cfg.Addr)
	if err != nil {
		return nil, err
	}
	fd, err := socket.Listen(addr, port, cfg.SizeBacklog)
	if err != nil {
		return nil, err
	}
	return NewRuntime(cfg, fd, rtr, logger, 0)
}

func (rt *Runtime) security() Security { return rt.cfg.Security }

func (rt *Runtime) tokenFor(index int) int32 { return int32(index) + 1 }
func (rt *Runtime) indexFor(token int32) int { return int(token) - 1 }

// armEpollOneshot (re-)arms fd for events, disarming after the next
// delivery: exactly one outstanding op per Provision at a time, realized
// on top of Linux's readiness-based epoll.
func (rt *Runtime) armEpollOneshot(fd int, token int32, events uint32) {
	ev := unix.EpollEvent{Events: events | unix.EPOLLONESHOT, Fd: token}
	if err := unix.EpollCtl(rt.epollFd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		if err := unix.EpollCtl(rt.epollFd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			rt.logger.Errorf("epoll_ctl add fd=%d: %v", fd, err)
		}
	}
}

// Run drives the worker's event loop until ctx is cancelled or a
// handler-signaled Kill stops it.
func (rt *Runtime) Run(ctx context.Context) error {
	rt.armAccept()

	events := make([]unix.EpollEvent, rt.cfg.SizeCompletionsReapMax)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := unix.EpollWait(rt.epollFd, events, 250)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("engine: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			tok := events[i].Fd
			if tok == listenToken {
				rt.onAcceptReady()
				continue
			}
			p := rt.pool.At(rt.indexFor(tok))
			rt.onReady(p)
		}

		if rt.stopped {
			return ErrKilled
		}
	}
}

// onReady dispatches a fired completion to the state machine leg that
// matches the Provision's current job.
func (rt *Runtime) onReady(p *Provision) {
	switch p.Job.Kind {
	case JobHandshake:
		rt.onHandshakeReady(p)
	case JobRecv:
		rt.onRecvReady(p)
	case JobSend:
		rt.onSendReady(p)
	default:
		panic(fmt.Sprintf("engine: provision %d: completion fired for job %s", p.Index, p.Job.Kind))
	}
}

// Close tears the worker's epoll instance and listening socket down.
// Per-connection sockets are the caller's responsibility during
// shutdown (a running server closes them via doClose as it drains).
func (rt *Runtime) Close() error {
	err := unix.Close(rt.epollFd)
	if cerr := unix.Close(rt.listenFd); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
