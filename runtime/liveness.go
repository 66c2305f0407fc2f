package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// IsRunning reports whether the runtime is actually up. Concurrent
// callers collapse into a single in-flight probe and all receive its
// result; the slot is cleared as soon as the probe resolves, so the
// next call starts fresh. There is no time-based caching.
func (c *Controller) IsRunning(ctx context.Context) bool {
	v, _, _ := c.probes.Do("liveness", func() (any, error) {
		return c.probeLiveness(ctx), nil
	})
	running, ok := v.(bool)
	return ok && running
}

// probeLiveness translates the is_running script's outcome into a
// boolean. Execution failures never propagate.
func (c *Controller) probeLiveness(ctx context.Context) bool {
	if !c.IsCreated() {
		return false
	}
	if err := c.exec.Execute(ctx, "is_running", nil, c.scriptEnv(), io.Discard); err != nil {
		slog.Debug("Liveness probe reported down.", "err", err)
		return false
	}
	return true
}

// IsCreated reports whether the runtime's working directory exists.
func (c *Controller) IsCreated() bool {
	info, err := os.Stat(c.cfg.Dir)
	return err == nil && info.IsDir()
}

// IsGenerated reports whether the runtime's configuration has been
// generated. Any failure, including directory absence, yields false.
func (c *Controller) IsGenerated(ctx context.Context) bool {
	if !c.IsCreated() {
		return false
	}
	if err := c.exec.Execute(ctx, "is_generated", nil, c.scriptEnv(), io.Discard); err != nil {
		slog.Debug("Generated probe reported false.", "err", err)
		return false
	}
	return true
}
