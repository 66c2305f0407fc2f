// Package runtime implements the lifecycle controller for a locally-run
// ledger network: a concurrency-safe state machine that serializes
// mutating operations, de-duplicates concurrent liveness probes, and
// always converges state to externally-observed truth.
package runtime

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"fabenv"

	"golang.org/x/sync/singleflight"
)

// Config carries everything the controller needs up front. Passing it
// explicitly keeps the controller free of process-wide configuration
// lookups and makes tests trivial to set up.
type Config struct {
	// Dir is the runtime's working directory. Scripts run with this as
	// their working directory; gateways/ and wallets/ live beneath it.
	Dir string

	// Name identifies the runtime instance.
	Name string

	// DockerName is the compose project name used for container and
	// volume naming. Must be a valid docker identifier.
	DockerName string

	// Ports is the port window assigned at creation time.
	Ports fabenv.Ports

	// ChaincodeTimeout is forwarded to spawned scripts as
	// CORE_CHAINCODE_EXECUTETIMEOUT.
	ChaincodeTimeout time.Duration
}

// Controller owns the observable runtime status. Every mutating
// operation is serialized by an internal mutex, marks the runtime busy
// for its duration, and reconciles state from the liveness probe on
// every exit path.
type Controller struct {
	cfg Config

	exec     Executor
	scaffold Scaffolder
	registry Registry
	wallets  Wallets
	logs     LogStreamer
	journal  Journal

	// opMu serializes mutating operations. Busy alone is an
	// observability field, not a gate.
	opMu sync.Mutex

	statusMu sync.Mutex
	state    fabenv.State
	busy     bool

	probes singleflight.Group
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogStreamer sets the log-tail controller stopped ahead of
// stop/teardown/restart.
func WithLogStreamer(ls LogStreamer) Option {
	return func(c *Controller) { c.logs = ls }
}

// WithJournal records completed operations to a journal.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// New creates a Controller. exec, scaffold, registry and wallets are
// required collaborators.
func New(cfg Config, exec Executor, scaffold Scaffolder, registry Registry, wallets Wallets, opts ...Option) (*Controller, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("runtime directory is required")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("runtime name is required")
	}
	c := &Controller{
		cfg:      cfg,
		exec:     exec,
		scaffold: scaffold,
		registry: registry,
		wallets:  wallets,
		logs:     noopStreamer{},
		state:    fabenv.StateStopped,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status returns a snapshot of the observable runtime status.
func (c *Controller) Status() fabenv.Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return fabenv.Status{State: c.state, Busy: c.busy}
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) setStatus(state fabenv.State, busy bool) {
	c.statusMu.Lock()
	c.state = state
	c.busy = busy
	c.statusMu.Unlock()
}

// scriptEnv is the deployment environment block injected into every
// script invocation.
func (c *Controller) scriptEnv() map[string]string {
	timeout := c.cfg.ChaincodeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return map[string]string{
		"COMPOSE_PROJECT_NAME":          c.cfg.DockerName,
		"CORE_CHAINCODE_EXECUTETIMEOUT": strconv.Itoa(int(timeout.Seconds())) + "s",
	}
}

type noopStreamer struct{}

func (noopStreamer) Stop() {}
