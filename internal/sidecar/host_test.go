//go:build !windows

package sidecar

import (
	"testing"
	"time"
)

// TestExecHostStreamsAndExit spawns a real shell and verifies both output
// streams are relayed line by line and the termination notice carries the
// exit code.
func TestExecHostStreamsAndExit(t *testing.T) {
	proc, err := ExecHost{}.Start("sh", "-c", "echo out-line; echo err-line 1>&2; exit 3")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if proc.PID() <= 0 {
		t.Fatalf("PID = %d, want a real process id", proc.PID())
	}

	var sawStdout, sawStderr bool
	var exit *Event

	timeout := time.After(5 * time.Second)
	for exit == nil {
		select {
		case ev, ok := <-proc.Events():
			if !ok {
				t.Fatal("stream closed before the termination notice")
			}
			switch ev.Kind {
			case EventStdout:
				if ev.Line != "out-line" {
					t.Errorf("stdout line = %q, want \"out-line\"", ev.Line)
				}
				sawStdout = true
			case EventStderr:
				if ev.Line != "err-line" {
					t.Errorf("stderr line = %q, want \"err-line\"", ev.Line)
				}
				sawStderr = true
			case EventExit:
				e := ev
				exit = &e
			}
		case <-timeout:
			t.Fatal("timed out waiting for process events")
		}
	}

	if !sawStdout || !sawStderr {
		t.Errorf("streams relayed: stdout=%v stderr=%v, want both", sawStdout, sawStderr)
	}
	if exit.ExitCode == nil || *exit.ExitCode != 3 {
		t.Errorf("exit code = %v, want 3", exit.ExitCode)
	}

	// The stream must close after the termination notice.
	select {
	case _, ok := <-proc.Events():
		if ok {
			t.Fatal("unexpected event after termination notice")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after termination notice")
	}
}

// TestExecHostSpawnFailure verifies a missing binary surfaces as an error
// from Start, not a panic or a zombie handle.
func TestExecHostSpawnFailure(t *testing.T) {
	if _, err := (ExecHost{}).Start("/nonexistent/siri-billing-backend"); err == nil {
		t.Fatal("Start should fail for a missing binary")
	}
}
