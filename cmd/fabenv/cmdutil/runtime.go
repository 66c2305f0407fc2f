// Package cmdutil assembles the runtime controller and its
// collaborators from persisted configuration.
package cmdutil

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"fabenv"
	"fabenv/config"
	"fabenv/gateway"
	"fabenv/internal/state"
	"fabenv/logstream"
	"fabenv/platform/docker"
	"fabenv/platform/scaffold"
	"fabenv/platform/script"
	"fabenv/runtime"
	"fabenv/wallet"
)

// Env bundles the controller with the collaborators commands need
// directly.
type Env struct {
	Cfg        *config.Config
	Controller *runtime.Controller
	Registry   *docker.Registry
	Wallets    *wallet.Store
	Streamer   *logstream.Controller
	Journal    *state.Journal
}

// Build loads the persisted configuration and wires up a controller
// backed by the local Docker engine. Callers must Close the Env.
func Build() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return BuildWith(cfg)
}

// BuildWith wires up a controller for an explicit configuration.
func BuildWith(cfg *config.Config) (*Env, error) {
	registry, err := docker.NewRegistry(cfg.DockerName)
	if err != nil {
		return nil, err
	}

	// The journal lives next to the config file, outside the runtime
	// directory, so teardown does not erase operation history.
	journal, err := state.Open(filepath.Join(filepath.Dir(config.Path()), "journal.db"))
	if err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("open operation journal: %w", err)
	}

	wallets := wallet.NewStore(cfg.Directory)

	// The resolver closes over the controller pointer; it is only
	// invoked after New returns.
	var ctrl *runtime.Controller
	streamer := logstream.New(func(ctx context.Context) (string, error) {
		return ctrl.LogspoutURL(ctx)
	})

	ctrl, err = runtime.New(
		runtime.Config{
			Dir:              cfg.Directory,
			Name:             cfg.Name,
			DockerName:       cfg.DockerName,
			Ports:            cfg.Ports,
			ChaincodeTimeout: time.Duration(cfg.ChaincodeTimeoutSeconds) * time.Second,
		},
		script.New(cfg.Directory),
		scaffold.Generator{},
		registry,
		wallets,
		runtime.WithLogStreamer(streamer),
		runtime.WithJournal(journal),
	)
	if err != nil {
		_ = journal.Close()
		_ = registry.Close()
		return nil, err
	}

	return &Env{
		Cfg:        cfg,
		Controller: ctrl,
		Registry:   registry,
		Wallets:    wallets,
		Streamer:   streamer,
		Journal:    journal,
	}, nil
}

// Gateways lists the runtime's gateway profiles.
func (e *Env) Gateways() ([]fabenv.Gateway, error) {
	return gateway.List(e.Cfg.Directory)
}

// Close releases the Env's long-lived resources.
func (e *Env) Close() {
	e.Streamer.Stop()
	_ = e.Journal.Close()
	_ = e.Registry.Close()
}
