// Package ember is the public surface of the server: a Server facade
// that binds the listening socket, starts one worker Runtime per
// configured thread, and tears them down together on shutdown.
package ember

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s00inx/ember/internal/engine"
	"github.com/s00inx/ember/internal/router"
	"github.com/s00inx/ember/internal/socket"
)

// Config re-exports engine.Config so callers never import internal/engine
// directly.
type Config = engine.Config

// DefaultConfig returns Config populated with sane defaults.
func DefaultConfig() Config { return engine.DefaultConfig() }

// Handler is the type route handlers are registered with.
type Handler = engine.Handler

// Context is the per-request handle passed to a Handler.
type Context = engine.Context

// Server binds one listening socket per worker on the same port via
// SO_REUSEPORT(_LB), each worker running an independent,
// single-threaded engine.Runtime with no state shared between workers.
type Server struct {
	cfg    Config
	router *router.Router[Handler]
	logger engine.Logger

	workers int
}

// New creates a Server. cfg.Workers selects the worker count: 0 means
// runtime.NumCPU().
func New(cfg Config) *Server {
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &Server{
		cfg:     cfg,
		router:  router.New[Handler](),
		logger:  engine.NewStdLogger(),
		workers: workers,
	}
}

// SetLogger overrides the default stderr logger.
func (s *Server) SetLogger(l engine.Logger) { s.logger = l }

// Handle registers h for method + path, e.g. s.Handle("GET", "/users/:id", h).
func (s *Server) Handle(method, path string, h Handler) {
	s.router.Handle(method, path, h)
}

// Serve binds one listening socket per worker, starts one Runtime on
// each, and blocks until every worker has returned: on ctx cancellation,
// or, per worker, when a handler-signaled Kill stops that worker alone.
// The first non-cancellation, non-Kill error from any worker is returned
// and cancels the rest, via errgroup.
func (s *Server) Serve(ctx context.Context) error {
	addr, port, err := socket.ParseIPv4(s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("ember: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		listenFd, err := socket.Listen(addr, port, s.cfg.SizeBacklog)
		if err != nil {
			return fmt.Errorf("ember: worker %d listen: %w", i, err)
		}

		rt, err := engine.NewRuntime(s.cfg, listenFd, s.router, s.logger, i)
		if err != nil {
			return fmt.Errorf("ember: worker %d: %w", i, err)
		}

		group.Go(func() error {
			defer rt.Close()
			err := rt.Run(gctx)
			if errors.Is(err, engine.ErrKilled) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return group.Wait()
}
