package sidecar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siri-labs/siri-billing/internal/events"
)

// fakeProcess is a scriptable Process for lifecycle tests.
type fakeProcess struct {
	pid    int
	events chan Event
	closed sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{
		pid:    pid,
		events: make(chan Event, 64),
	}
}

func (p *fakeProcess) PID() int             { return p.pid }
func (p *fakeProcess) Events() <-chan Event { return p.events }

// exit emits the termination notice and ends the stream.
func (p *fakeProcess) exit(code *int) {
	p.closed.Do(func() {
		p.events <- Event{Kind: EventExit, ExitCode: code}
		close(p.events)
	})
}

// fakeHost hands out a prepared process or a spawn error.
type fakeHost struct {
	proc *fakeProcess
	err  error
}

func (h *fakeHost) Start(path string, args ...string) (Process, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.proc, nil
}

// newTestManager builds a manager with compressed timings and a counting
// kill function.
func newTestManager(t *testing.T, host Host, endpoint string, kills *atomic.Int32) *Manager {
	t.Helper()

	m := New(Config{
		BinaryPath:       "backend-under-test",
		ShutdownEndpoint: endpoint,
		ShutdownTimeout:  250 * time.Millisecond,
		GracePeriod:      50 * time.Millisecond,
	}, host, events.NewEventBus(0))

	m.killTree = func(pid int) error {
		kills.Add(1)
		return nil
	}
	return m
}

// TestTerminationAtMostOnce fires the window-close and application-exit
// paths concurrently against a live handle: the OS-level kill must be
// issued exactly once.
func TestTerminationAtMostOnce(t *testing.T) {
	proc := newFakeProcess(4242)
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{proc: proc}, "http://127.0.0.1:1/api/shutdown", &kills)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.GracefulShutdown(context.Background())
	}()
	go func() {
		defer wg.Done()
		m.FinalCleanup()
	}()
	wg.Wait()

	// Whichever path lost the race must have seen an absent handle.
	if got := kills.Load(); got != 1 {
		t.Fatalf("kill issued %d times, want exactly 1", got)
	}

	if running, _ := m.Status(); running {
		t.Fatal("handle should be absent after shutdown")
	}

	proc.exit(nil)
	m.relayWG.Wait()

	// The relay's stream-end bookkeeping must not re-kill.
	if got := kills.Load(); got != 1 {
		t.Fatalf("kill count changed to %d after relay end, want 1", got)
	}
}

// TestTerminationAfterRelayCleared covers the benign race where the
// backend exits on its own first: the relay clears the handle and both
// shutdown paths become no-ops.
func TestTerminationAfterRelayCleared(t *testing.T) {
	proc := newFakeProcess(77)
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{proc: proc}, "http://127.0.0.1:1/api/shutdown", &kills)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	code := 0
	proc.exit(&code)
	m.relayWG.Wait()

	m.GracefulShutdown(context.Background())
	m.FinalCleanup()

	if got := kills.Load(); got != 0 {
		t.Fatalf("kill issued %d times for an already-exited backend, want 0", got)
	}
}

// TestGracefulShutdownClearsHandle verifies the handle is absent after
// GracefulShutdown no matter how the shutdown POST fared.
func TestGracefulShutdownClearsHandle(t *testing.T) {
	cases := []struct {
		name     string
		endpoint func(t *testing.T) string
	}{
		{
			name: "post succeeds",
			endpoint: func(t *testing.T) string {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}))
				t.Cleanup(srv.Close)
				return srv.URL + "/api/shutdown"
			},
		},
		{
			name: "post errors",
			endpoint: func(t *testing.T) string {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				t.Cleanup(srv.Close)
				return srv.URL + "/api/shutdown"
			},
		},
		{
			name: "connection refused",
			endpoint: func(t *testing.T) string {
				return "http://127.0.0.1:1/api/shutdown"
			},
		},
		{
			name: "post times out",
			endpoint: func(t *testing.T) string {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(time.Second)
				}))
				t.Cleanup(srv.Close)
				return srv.URL + "/api/shutdown"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := newFakeProcess(11)
			var kills atomic.Int32
			m := newTestManager(t, &fakeHost{proc: proc}, tc.endpoint(t), &kills)

			if err := m.Start(); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			m.GracefulShutdown(context.Background())

			if running, _ := m.Status(); running {
				t.Fatal("handle should be absent after graceful shutdown")
			}
			if got := kills.Load(); got != 1 {
				t.Fatalf("kill issued %d times, want 1", got)
			}
		})
	}
}

// TestUnconditionalGraceWait reproduces the documented sequence: backend
// at pid 4242, window close fires, the shutdown POST succeeds within a
// second, and the force-kill is still attempted after the full fixed wait.
func TestUnconditionalGraceWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("shutdown request method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	proc := newFakeProcess(4242)
	var kills atomic.Int32
	var killedPID atomic.Int32
	m := newTestManager(t, &fakeHost{proc: proc}, srv.URL+"/api/shutdown", &kills)
	m.killTree = func(pid int) error {
		kills.Add(1)
		killedPID.Store(int32(pid))
		return nil
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	m.GracefulShutdown(context.Background())
	elapsed := time.Since(start)

	if elapsed < m.cfg.GracePeriod {
		t.Fatalf("shutdown returned after %v, want at least the %v grace period", elapsed, m.cfg.GracePeriod)
	}
	if got := kills.Load(); got != 1 {
		t.Fatalf("kill issued %d times despite successful POST, want 1", got)
	}
	if got := killedPID.Load(); got != 4242 {
		t.Fatalf("kill targeted pid %d, want 4242", got)
	}
}

// TestFinalCleanupNoOpWhenAbsent verifies the safety net does nothing when
// the handle was never stored or already consumed.
func TestFinalCleanupNoOpWhenAbsent(t *testing.T) {
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{proc: newFakeProcess(1)}, "http://127.0.0.1:1/api/shutdown", &kills)

	// Never started: nothing to do.
	m.FinalCleanup()
	if got := kills.Load(); got != 0 {
		t.Fatalf("kill issued %d times with no handle, want 0", got)
	}
}

// TestSpawnFailureIsReportedNotFatal verifies a failed spawn surfaces an
// error but leaves the manager usable (and the shutdown paths inert).
func TestSpawnFailureIsReportedNotFatal(t *testing.T) {
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{err: errors.New("binary not found")}, "http://127.0.0.1:1/api/shutdown", &kills)

	if err := m.Start(); err == nil {
		t.Fatal("Start should surface the spawn failure")
	}

	if running, _ := m.Status(); running {
		t.Fatal("no handle should be stored after a failed spawn")
	}

	m.GracefulShutdown(context.Background())
	m.FinalCleanup()
	if got := kills.Load(); got != 0 {
		t.Fatalf("kill issued %d times after failed spawn, want 0", got)
	}
}

// TestRelayClassifiesStreams verifies stdout, stderr and the termination
// notice are forwarded to the event bus with the documented severities.
func TestRelayClassifiesStreams(t *testing.T) {
	proc := newFakeProcess(99)
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{proc: proc}, "http://127.0.0.1:1/api/shutdown", &kills)

	sub := m.bus.Subscribe(events.EventLog)
	stateSub := m.bus.Subscribe(events.EventSidecarState)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	proc.events <- Event{Kind: EventStdout, Line: "listening on :8080"}
	proc.events <- Event{Kind: EventStderr, Line: "db connection lost"}
	code := 3
	proc.exit(&code)
	m.relayWG.Wait()

	first := recvLog(t, sub)
	if first.Level != events.InfoLevel || first.Message != "listening on :8080" {
		t.Errorf("stdout relayed as %s %q, want INFO \"listening on :8080\"", first.Level, first.Message)
	}
	second := recvLog(t, sub)
	if second.Level != events.ErrorLevel || second.Message != "db connection lost" {
		t.Errorf("stderr relayed as %s %q, want ERROR \"db connection lost\"", second.Level, second.Message)
	}

	// Starting, running, then exited with the reported code.
	for _, want := range []events.SidecarState{events.SidecarStarting, events.SidecarRunning} {
		if got := recvState(t, stateSub).State; got != want {
			t.Fatalf("state = %s, want %s", got, want)
		}
	}
	exited := recvState(t, stateSub)
	if exited.State != events.SidecarExited {
		t.Fatalf("final state = %s, want %s", exited.State, events.SidecarExited)
	}
	if exited.ExitCode == nil || *exited.ExitCode != 3 {
		t.Errorf("exit code not carried through, got %v", exited.ExitCode)
	}

	if running, _ := m.Status(); running {
		t.Fatal("handle should be cleared after the stream ended")
	}
}

// TestRelaySignalKillOmitsExitCode verifies a signal-killed backend
// reports an absent exit code rather than a fabricated one.
func TestRelaySignalKillOmitsExitCode(t *testing.T) {
	proc := newFakeProcess(55)
	var kills atomic.Int32
	m := newTestManager(t, &fakeHost{proc: proc}, "http://127.0.0.1:1/api/shutdown", &kills)

	stateSub := m.bus.Subscribe(events.EventSidecarState)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	proc.exit(nil)
	m.relayWG.Wait()

	var exited *events.SidecarStateEvent
	for i := 0; i < 3; i++ {
		ev := recvState(t, stateSub)
		if ev.State == events.SidecarExited {
			exited = ev
			break
		}
	}
	if exited == nil {
		t.Fatal("no exited state observed")
	}
	if exited.ExitCode != nil {
		t.Errorf("exit code = %d, want absent for signal-killed process", *exited.ExitCode)
	}
}

func recvLog(t *testing.T, ch <-chan events.Event) *events.LogEvent {
	t.Helper()
	select {
	case ev := <-ch:
		logEv, ok := ev.(*events.LogEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		return logEv
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for log event")
		return nil
	}
}

func recvState(t *testing.T, ch <-chan events.Event) *events.SidecarStateEvent {
	t.Helper()
	select {
	case ev := <-ch:
		stateEv, ok := ev.(*events.SidecarStateEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		return stateEv
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state event")
		return nil
	}
}
