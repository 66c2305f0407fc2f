package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"fabenv"
)

// run executes a mutating operation under the operation mutex. It flips
// busy on, installs the transient state, and defers the reconciliation:
// busy off, state re-derived from the liveness probe. The deferred step
// runs exactly once on every exit path, including panics, so state is
// never left transient after an operation ends.
func (c *Controller) run(ctx context.Context, op string, transient fabenv.State, fn func() error) (err error) {
	c.opMu.Lock()
	c.setStatus(transient, true)
	started := time.Now()

	defer func() {
		// State always reflects observed reality, not intent: probe
		// liveness even when the operation failed, and even on the
		// stopping path.
		final := fabenv.StateStopped
		if c.IsRunning(ctx) {
			final = fabenv.StateStarted
		}
		c.setStatus(final, false)

		if c.journal != nil {
			c.journal.Record(op, started, time.Now(), final, err)
		}
		c.opMu.Unlock()
	}()

	return fn()
}

// Create destroys and recreates the runtime's working directory, then
// invokes the scaffolding generator with the current port assignment.
// It is a setup step, not busy-guarded; failures propagate and the
// caller retries Create.
func (c *Controller) Create(ctx context.Context) error {
	if err := os.RemoveAll(c.cfg.Dir); err != nil {
		return fmt.Errorf("remove runtime directory: %w", err)
	}
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}
	if err := c.scaffold.Generate(ctx, c.cfg.Dir, c.cfg.Name, c.cfg.DockerName, c.cfg.Ports); err != nil {
		return fmt.Errorf("generate scaffolding: %w", err)
	}
	return nil
}

// Generate runs the generate script, producing the runtime's crypto
// material and channel artifacts.
func (c *Controller) Generate(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "generate", fabenv.StateStarting, func() error {
		return c.exec.Execute(ctx, "generate", nil, c.scriptEnv(), sink)
	})
}

// Start brings the runtime up.
func (c *Controller) Start(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "start", fabenv.StateStarting, func() error {
		return c.exec.Execute(ctx, "start", nil, c.scriptEnv(), sink)
	})
}

// Stop brings the runtime down. The active log stream is stopped first
// so no streaming connection is left open against a runtime about to
// go away. The final state still comes from the liveness probe and may
// be Started if the stop script did not actually bring the runtime down.
func (c *Controller) Stop(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "stop", fabenv.StateStopping, func() error {
		return c.stopInner(ctx, sink)
	})
}

func (c *Controller) stopInner(ctx context.Context, sink io.Writer) error {
	c.logs.Stop()
	return c.exec.Execute(ctx, "stop", nil, c.scriptEnv(), sink)
}

// Teardown destroys the runtime, recreates the working directory and
// re-imports the wallets and identities found in the fresh scaffolding.
// A teardown script failure skips recreation and propagates; busy and
// state are still reconciled.
func (c *Controller) Teardown(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "teardown", fabenv.StateStopping, func() error {
		c.logs.Stop()
		if err := c.exec.Execute(ctx, "teardown", nil, c.scriptEnv(), sink); err != nil {
			return err
		}
		if err := c.Create(ctx); err != nil {
			return err
		}
		return c.importWalletsAndIdentities()
	})
}

// Restart runs stop then start back-to-back with a single final
// reconciliation. A stop failure aborts the restart.
func (c *Controller) Restart(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "restart", fabenv.StateRestarting, func() error {
		if err := c.stopInner(ctx, sink); err != nil {
			return err
		}
		return c.exec.Execute(ctx, "start", nil, c.scriptEnv(), sink)
	})
}

// KillChaincode force-removes a running chaincode container. This is an
// informational operation: no busy guard, no state reconciliation.
func (c *Controller) KillChaincode(ctx context.Context, name, version string, sink io.Writer) error {
	return c.exec.Execute(ctx, "kill_chaincode", []string{name, version}, c.scriptEnv(), sink)
}

// importWalletsAndIdentities registers every wallet and identity found
// on disk with the credential-store collaborator. Used after Teardown
// recreates the scaffolding.
func (c *Controller) importWalletsAndIdentities() error {
	wallets, err := c.wallets.List()
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}
	for _, w := range wallets {
		if err := c.wallets.Create(w.Name); err != nil {
			return fmt.Errorf("create wallet %q: %w", w.Name, err)
		}
		ids, err := c.wallets.Identities(w.Name)
		if err != nil {
			return fmt.Errorf("list identities in wallet %q: %w", w.Name, err)
		}
		for _, id := range ids {
			if err := c.wallets.Import(w.Name, id); err != nil {
				return fmt.Errorf("import identity %q into wallet %q: %w", id.Name, w.Name, err)
			}
		}
		slog.Debug("Re-imported wallet.", "wallet", w.Name, "identities", len(ids))
	}
	return nil
}
