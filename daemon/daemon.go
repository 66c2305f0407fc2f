// Package daemon exposes the runtime lifecycle over a local HTTP API on
// a unix socket.
package daemon

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Readiness blocks until the container engine is reachable.
type Readiness interface {
	WaitReady(ctx context.Context) error
}

// Run waits for the container engine, then serves the API until ctx is
// cancelled.
func Run(ctx context.Context, srv *Server, ready Readiness, socketPath string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if ready != nil {
			slog.Info("Waiting for container engine.")
			if err := ready.WaitReady(ctx); err != nil {
				return err
			}
		}
		slog.Info("Serving runtime API.", "socket", socketPath)
		return srv.ListenAndServe(ctx, socketPath)
	})
	return g.Wait()
}
