// Command emberd is an example binary wiring up ember.Server with a
// couple of routes; this file is glue, not part of the engine itself.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/s00inx/ember/pkg/ember"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:8080", "address to listen on")
	workers := flag.Int("workers", 0, "worker count (0 = NumCPU)")
	flag.Parse()

	cfg := ember.DefaultConfig()
	cfg.Addr = *addr
	cfg.Workers = *workers

	srv := ember.New(cfg)

	srv.Handle("GET", "/", func(ctx *ember.Context) {
		ctx.SetStatus(200)
		ctx.SetHeader("Content-Type", "text/plain")
		ctx.Write([]byte("ember\n"))
	})

	srv.Handle("GET", "/users/:id", func(ctx *ember.Context) {
		id, _ := ctx.Param("id")
		ctx.SetStatus(200)
		ctx.SetHeader("Content-Type", "text/plain")
		ctx.Write(append([]byte("user "), id...))
	})

	srv.Handle("POST", "/echo", func(ctx *ember.Context) {
		ctx.SetStatus(200)
		ctx.SetHeader("Content-Type", "application/octet-stream")
		ctx.Write(ctx.Body())
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("emberd: listening on %s (%d worker(s))", cfg.Addr, cfg.Workers)
	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("emberd: %v", err)
	}
}
