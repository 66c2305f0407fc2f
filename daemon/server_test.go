package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fabenv"

	"github.com/gorilla/websocket"
)

type fakeRuntime struct {
	mu       sync.Mutex
	status   fabenv.Status
	created  bool
	nodes    []fabenv.Node
	calls    []string
	opErr    error
	logsAddr string
}

func (f *fakeRuntime) Status() fabenv.Status            { return f.status }
func (f *fakeRuntime) IsCreated() bool                  { return f.created }
func (f *fakeRuntime) IsGenerated(context.Context) bool { return f.created }

func (f *fakeRuntime) LogspoutURL(context.Context) (string, error) {
	if f.logsAddr == "" {
		return "", fmt.Errorf("no logspout node found")
	}
	return f.logsAddr, nil
}

func (f *fakeRuntime) Nodes(context.Context) ([]fabenv.Node, error) {
	return f.nodes, nil
}

func (f *fakeRuntime) op(name string, sink io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	fmt.Fprintf(sink, "%s output\n", name)
	return f.opErr
}

func (f *fakeRuntime) Generate(_ context.Context, sink io.Writer) error { return f.op("generate", sink) }
func (f *fakeRuntime) Start(_ context.Context, sink io.Writer) error    { return f.op("start", sink) }
func (f *fakeRuntime) Stop(_ context.Context, sink io.Writer) error     { return f.op("stop", sink) }
func (f *fakeRuntime) Restart(_ context.Context, sink io.Writer) error  { return f.op("restart", sink) }
func (f *fakeRuntime) Teardown(_ context.Context, sink io.Writer) error { return f.op("teardown", sink) }

func (f *fakeRuntime) KillChaincode(_ context.Context, name, version string, sink io.Writer) error {
	return f.op("kill_chaincode "+name+" "+version, sink)
}

type fakeWallets struct {
	wallets  []fabenv.Wallet
	imported []fabenv.Identity
	err      error
}

func (f *fakeWallets) List() ([]fabenv.Wallet, error) { return f.wallets, f.err }
func (f *fakeWallets) Identities(string) ([]fabenv.Identity, error) {
	return []fabenv.Identity{{Name: "Admin", MSPID: "Org1MSP"}}, f.err
}
func (f *fakeWallets) Create(name string) error {
	f.wallets = append(f.wallets, fabenv.Wallet{Name: name})
	return f.err
}
func (f *fakeWallets) Delete(string) error { return f.err }
func (f *fakeWallets) Import(_ string, id fabenv.Identity) error {
	f.imported = append(f.imported, id)
	return f.err
}

type fakeGateways struct{ gws []fabenv.Gateway }

func (f *fakeGateways) List() ([]fabenv.Gateway, error) { return f.gws, nil }

func newTestServer(t *testing.T, rt *fakeRuntime, opts ...ServerOption) (*httptest.Server, *fakeWallets) {
	t.Helper()
	wallets := &fakeWallets{}
	srv := NewServer(rt, wallets, &fakeGateways{gws: []fabenv.Gateway{{Name: "Org1"}}}, "test", opts...)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, wallets
}

func TestGetStatus_ReportsStateAndFlags(t *testing.T) {
	rt := &fakeRuntime{status: fabenv.Status{State: fabenv.StateStarted, Busy: true}, created: true}
	ts, _ := newTestServer(t, rt)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		State     string `json:"state"`
		Busy      bool   `json:"busy"`
		Created   bool   `json:"created"`
		Generated bool   `json:"generated"`
		Version   string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.State != "started" || !got.Busy || !got.Created || got.Version != "test" {
		t.Errorf("status = %+v", got)
	}
}

func TestLifecycle_StreamsScriptOutput(t *testing.T) {
	rt := &fakeRuntime{}
	ts, _ := newTestServer(t, rt)

	resp, err := http.Post(ts.URL+"/api/v1/lifecycle/start", "text/plain", nil)
	if err != nil {
		t.Fatalf("post start: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "start output") {
		t.Errorf("body = %q, want script output", body)
	}
	if len(rt.calls) != 1 || rt.calls[0] != "start" {
		t.Errorf("calls = %v", rt.calls)
	}
}

func TestLifecycle_OperationErrorEndsUpOnStream(t *testing.T) {
	rt := &fakeRuntime{opErr: fmt.Errorf("exit status 1")}
	ts, _ := newTestServer(t, rt)

	resp, err := http.Post(ts.URL+"/api/v1/lifecycle/teardown", "text/plain", nil)
	if err != nil {
		t.Fatalf("post teardown: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "error: exit status 1") {
		t.Errorf("body = %q, want trailing error line", body)
	}
}

func TestListNodes_ReturnsRegistryView(t *testing.T) {
	rt := &fakeRuntime{nodes: []fabenv.Node{{Type: fabenv.NodePeer, Name: "peer0.org1.example.com"}}}
	ts, _ := newTestServer(t, rt)

	resp, err := http.Get(ts.URL + "/api/v1/nodes")
	if err != nil {
		t.Fatalf("get nodes: %v", err)
	}
	defer resp.Body.Close()

	var nodes []fabenv.Node
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Name != "peer0.org1.example.com" {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestCreateWallet_RequiresName(t *testing.T) {
	ts, wallets := newTestServer(t, &fakeRuntime{})

	resp, err := http.Post(ts.URL+"/api/v1/wallets", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post wallet: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if len(wallets.wallets) != 0 {
		t.Errorf("wallet created despite missing name: %+v", wallets.wallets)
	}
}

func TestImportIdentity_DeliversToStore(t *testing.T) {
	ts, wallets := newTestServer(t, &fakeRuntime{})

	payload := `{"name":"Admin","msp_id":"Org1MSP","cert":"cert-pem","private_key":"key-pem"}`
	resp, err := http.Post(ts.URL+"/api/v1/wallets/Org1/identities", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post identity: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if len(wallets.imported) != 1 || wallets.imported[0].MSPID != "Org1MSP" {
		t.Errorf("imported = %+v", wallets.imported)
	}
}

func TestRemoveNode_DisabledWithoutRemover(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRuntime{})

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/nodes/peer0", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete node: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestStreamLogs_RelaysCollectorLines(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logs" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "peer0 | committed block 1")
		fmt.Fprintln(w, "peer0 | committed block 2")
	}))
	defer collector.Close()

	rt := &fakeRuntime{logsAddr: collector.URL}
	ts, _ := newTestServer(t, rt)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read first message: %v", err)
	}
	if string(first) != "peer0 | committed block 1" {
		t.Errorf("first line = %q", first)
	}
	_, second, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read second message: %v", err)
	}
	if string(second) != "peer0 | committed block 2" {
		t.Errorf("second line = %q", second)
	}
}

func TestStreamLogs_NoCollectorAnswers502(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRuntime{})

	resp, err := http.Get(ts.URL + "/api/v1/logs")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}
