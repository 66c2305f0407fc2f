package runtime

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"fabenv"
)

func TestIsRunning_ConcurrentCallsShareOneProbe(t *testing.T) {
	rig := newTestRig(t)
	bp := newBlockPoint()
	rig.exec.block["is_running"] = bp

	const callers = 10
	results := make(chan bool, callers)

	// First caller starts the probe and parks inside it.
	go func() { results <- rig.ctrl.IsRunning(context.Background()) }()
	<-bp.started

	// The rest join while the probe is in flight.
	var launched sync.WaitGroup
	for i := 1; i < callers; i++ {
		launched.Add(1)
		go func() {
			launched.Done()
			results <- rig.ctrl.IsRunning(context.Background())
		}()
	}
	launched.Wait()
	time.Sleep(50 * time.Millisecond) // let the joiners reach the in-flight slot

	close(bp.release)

	for i := 0; i < callers; i++ {
		if got := <-results; !got {
			t.Fatalf("caller %d got false, want true", i)
		}
	}
	if n := rig.exec.callCount("is_running"); n != 1 {
		t.Fatalf("probe script executed %d times, want 1", n)
	}
}

func TestIsRunning_SlotClearedAfterResolve(t *testing.T) {
	rig := newTestRig(t)

	if !rig.ctrl.IsRunning(context.Background()) {
		t.Fatal("first probe should report running")
	}
	rig.exec.errs["is_running"] = downErr
	if rig.ctrl.IsRunning(context.Background()) {
		t.Fatal("second probe should start fresh and report down")
	}
	if n := rig.exec.callCount("is_running"); n != 2 {
		t.Fatalf("probe script executed %d times, want 2", n)
	}
}

func TestIsRunning_NotCreatedSkipsScript(t *testing.T) {
	exec := &fakeExecutor{errs: map[string]error{}}
	cfg := Config{Dir: "/nonexistent/fabenv-test", Name: "testnet", DockerName: "testnet"}
	ctrl, err := New(cfg, exec, &fakeScaffolder{}, &fakeRegistry{}, &fakeWallets{})
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}

	if ctrl.IsRunning(context.Background()) {
		t.Fatal("IsRunning should be false before create")
	}
	if n := exec.callCount("is_running"); n != 0 {
		t.Fatalf("probe script executed %d times before create, want 0", n)
	}
}

func TestIsRunning_ProbeFailureNeverPropagates(t *testing.T) {
	rig := newTestRig(t)
	rig.exec.errs["is_running"] = downErr

	if rig.ctrl.IsRunning(context.Background()) {
		t.Fatal("IsRunning should translate probe failure to false")
	}
}

func TestIsCreated_FollowsDirectoryExistence(t *testing.T) {
	exec := &fakeExecutor{errs: map[string]error{}}
	dir := t.TempDir() + "/runtime"
	cfg := Config{Dir: dir, Name: "testnet", DockerName: "testnet"}
	ctrl, err := New(cfg, exec, &fakeScaffolder{}, &fakeRegistry{}, &fakeWallets{})
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}

	if ctrl.IsCreated() {
		t.Fatal("IsCreated should be false before Create")
	}
	if err := ctrl.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ctrl.IsCreated() {
		t.Fatal("IsCreated should be true immediately after Create")
	}
}

func TestIsGenerated_ProbeFailureYieldsFalse(t *testing.T) {
	rig := newTestRig(t)

	if !rig.ctrl.IsGenerated(context.Background()) {
		t.Fatal("IsGenerated should be true when the probe succeeds")
	}

	rig.exec.errs["is_generated"] = downErr
	if rig.ctrl.IsGenerated(context.Background()) {
		t.Fatal("IsGenerated should be false when the probe fails")
	}
}

func TestIsGenerated_FalseBeforeCreate(t *testing.T) {
	exec := &fakeExecutor{errs: map[string]error{}}
	cfg := Config{Dir: "/nonexistent/fabenv-test", Name: "testnet", DockerName: "testnet"}
	ctrl, err := New(cfg, exec, &fakeScaffolder{}, &fakeRegistry{}, &fakeWallets{})
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}

	if ctrl.IsGenerated(context.Background()) {
		t.Fatal("IsGenerated should be false when the directory is absent")
	}
	if n := exec.callCount("is_generated"); n != 0 {
		t.Fatalf("probe script executed %d times, want 0", n)
	}
}

// Property 2: state is started after an operation iff the probe run
// immediately afterwards reports true.
func TestReconcile_StateMatchesObservedLiveness(t *testing.T) {
	cases := []struct {
		name    string
		probeUp bool
		want    fabenv.State
	}{
		{"observed up", true, fabenv.StateStarted},
		{"observed down", false, fabenv.StateStopped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := newTestRig(t)
			if !tc.probeUp {
				rig.exec.errs["is_running"] = downErr
			}
			if err := rig.ctrl.Generate(context.Background(), io.Discard); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if st := rig.ctrl.Status(); st.State != tc.want {
				t.Fatalf("state = %v, want %v", st.State, tc.want)
			}
		})
	}
}
