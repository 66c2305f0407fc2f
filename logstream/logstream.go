// Package logstream tails the runtime's aggregated container logs over
// a long-lived HTTP streaming connection.
package logstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Resolver yields the log-collector endpoint, e.g. http://localhost:17056.
// It fails when no log-collector node is registered.
type Resolver func(ctx context.Context) (string, error)

// Controller owns at most one active log-tail connection. Start opens
// the stream and forwards everything into the sink from a background
// goroutine; Stop aborts the connection and is idempotent when no
// stream is active.
type Controller struct {
	resolve Resolver
	client  *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient overrides the HTTP client used for the stream.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) { c.client = client }
}

// New creates a Controller that resolves the log endpoint on every Start.
func New(resolve Resolver, opts ...Option) *Controller {
	c := &Controller{resolve: resolve, client: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the log stream and begins forwarding into sink. An
// already-active stream is stopped first. The connection stays open
// until Stop is called, the server closes it, or ctx is cancelled.
func (c *Controller) Start(ctx context.Context, sink io.Writer) error {
	endpoint, err := c.resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve log endpoint: %w", err)
	}
	url := strings.TrimSuffix(endpoint, "/") + "/logs"

	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("build log request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("open log stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return fmt.Errorf("open log stream: unexpected status %s", resp.Status)
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.stopLocked()
	}
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer resp.Body.Close()
		if _, err := io.Copy(sink, resp.Body); err != nil && streamCtx.Err() == nil {
			slog.Debug("Log stream ended.", "err", err)
		}
	}()

	return nil
}

// Stop aborts the active stream and waits for the forwarding goroutine
// to drain. Calling Stop with no active stream is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

// Active reports whether a log stream is currently open.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}
