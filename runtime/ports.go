package runtime

import (
	"context"
	"io"
	"time"

	"fabenv"
)

// Executor runs a named lifecycle script inside the runtime's working
// directory. Platform-specific invocation (.cmd vs .sh) is hidden behind
// this single contract. Combined stdout/stderr is streamed to sink as it
// is produced; env is merged over the ambient process environment.
type Executor interface {
	Execute(ctx context.Context, script string, args []string, env map[string]string, sink io.Writer) error
}

// Scaffolder materializes the runtime's on-disk configuration into dir.
type Scaffolder interface {
	Generate(ctx context.Context, dir, name, dockerName string, ports fabenv.Ports) error
}

// Registry supplies the network nodes discovered for this runtime.
// In production this is backed by the Docker engine; in tests a fake.
type Registry interface {
	Nodes(ctx context.Context) ([]fabenv.Node, error)
}

// Wallets is the credential-store collaborator. The controller treats
// stores and identities as opaque import targets.
type Wallets interface {
	List() ([]fabenv.Wallet, error)
	Identities(wallet string) ([]fabenv.Identity, error)
	Create(wallet string) error
	Delete(wallet string) error
	Import(wallet string, id fabenv.Identity) error
}

// LogStreamer owns the long-lived log-tail connection. Stop is
// idempotent when no stream is active.
type LogStreamer interface {
	Stop()
}

// Journal records completed lifecycle operations. Implementations must
// not fail the operation: recording errors are the journal's problem.
type Journal interface {
	Record(op string, started, finished time.Time, result fabenv.State, opErr error)
}
