package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"fabenv"
)

// fakeExecutor records script invocations and fails the scripts listed
// in errs. Safe for concurrent use.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	envs  []map[string]string
	errs  map[string]error

	// block, when set for a script, is closed-waited before returning:
	// the script signals started and parks until released.
	block map[string]*blockPoint
}

type blockPoint struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockPoint() *blockPoint {
	return &blockPoint{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *fakeExecutor) Execute(_ context.Context, script string, _ []string, env map[string]string, _ io.Writer) error {
	e.mu.Lock()
	e.calls = append(e.calls, script)
	e.envs = append(e.envs, env)
	bp := e.block[script]
	err := error(nil)
	if e.errs != nil {
		err = e.errs[script]
	}
	e.mu.Unlock()

	if bp != nil {
		bp.once.Do(func() { close(bp.started) })
		<-bp.release
	}
	return err
}

func (e *fakeExecutor) callCount(script string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == script {
			n++
		}
	}
	return n
}

func (e *fakeExecutor) callSequence() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

type fakeScaffolder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeScaffolder) Generate(_ context.Context, dir, _, _ string, _ fabenv.Ports) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *fakeScaffolder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeRegistry struct {
	nodes []fabenv.Node
	err   error
}

func (r *fakeRegistry) Nodes(context.Context) ([]fabenv.Node, error) {
	return r.nodes, r.err
}

type fakeWallets struct {
	mu       sync.Mutex
	wallets  map[string][]fabenv.Identity
	imported []string // "wallet/identity"
	created  []string
}

func (w *fakeWallets) List() ([]fabenv.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]fabenv.Wallet, 0, len(w.wallets))
	for name := range w.wallets {
		out = append(out, fabenv.Wallet{Name: name})
	}
	return out, nil
}

func (w *fakeWallets) Identities(wallet string) ([]fabenv.Identity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wallets[wallet], nil
}

func (w *fakeWallets) Create(wallet string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.created = append(w.created, wallet)
	return nil
}

func (w *fakeWallets) Delete(wallet string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.wallets, wallet)
	return nil
}

func (w *fakeWallets) Import(wallet string, id fabenv.Identity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.imported = append(w.imported, wallet+"/"+id.Name)
	return nil
}

// fakeLogs records Stop calls into the executor's call sequence so
// ordering relative to scripts is observable.
type fakeLogs struct {
	exec *fakeExecutor
}

func (l *fakeLogs) Stop() {
	l.exec.mu.Lock()
	defer l.exec.mu.Unlock()
	l.exec.calls = append(l.exec.calls, "stop_logs")
}

type recordedOp struct {
	op     string
	result fabenv.State
	err    error
}

type fakeJournal struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (j *fakeJournal) Record(op string, _, _ time.Time, result fabenv.State, opErr error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, recordedOp{op: op, result: result, err: opErr})
}

type testRig struct {
	ctrl     *Controller
	exec     *fakeExecutor
	scaffold *fakeScaffolder
	registry *fakeRegistry
	wallets  *fakeWallets
}

func newTestRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()

	exec := &fakeExecutor{errs: map[string]error{}, block: map[string]*blockPoint{}}
	scaffold := &fakeScaffolder{}
	registry := &fakeRegistry{}
	wallets := &fakeWallets{wallets: map[string][]fabenv.Identity{}}

	cfg := Config{
		Dir:        t.TempDir(),
		Name:       "testnet",
		DockerName: "testnet",
		Ports:      fabenv.Ports{Orderer: 17050, PeerRequest: 17051, PeerChaincode: 17052, CertificateAuthority: 17054, CouchDB: 17055, Logs: 17056},
	}

	allOpts := append([]Option{WithLogStreamer(&fakeLogs{exec: exec})}, opts...)
	ctrl, err := New(cfg, exec, scaffold, registry, wallets, allOpts...)
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}
	return &testRig{ctrl: ctrl, exec: exec, scaffold: scaffold, registry: registry, wallets: wallets}
}

// downErr marks the liveness probe as failing, i.e. runtime observed down.
var downErr = fmt.Errorf("exit status 1")
