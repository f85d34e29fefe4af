// Package sidecar owns the backend billing process for the application's
// lifetime: it spawns the bundled backend executable, relays its output
// into structured logs and the in-app viewer, and guarantees the process
// tree is terminated exactly once when the window closes or the
// application exits.
package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// EventKind classifies process events delivered by a Host.
type EventKind int

const (
	// EventStdout is a line written to the process's standard output.
	EventStdout EventKind = iota
	// EventStderr is a line written to the process's standard error.
	EventStderr
	// EventExit is the termination notice. It is the final event before
	// the stream closes.
	EventExit
)

// Event is a single process observation.
type Event struct {
	Kind EventKind
	Line string
	// ExitCode accompanies EventExit. It is nil when the process was
	// killed by a signal and no code was reported.
	ExitCode *int
}

// Process is a handle to a running backend process.
type Process interface {
	// PID returns the OS process id. On Unix the process is also the
	// leader of its own process group, so -PID addresses the whole tree.
	PID() int
	// Events returns the process event stream. The channel is closed
	// after the EventExit notice has been delivered.
	Events() <-chan Event
}

// Host starts backend processes and streams their output and lifecycle
// events. The exec-backed implementation below is used in production;
// tests substitute fakes.
type Host interface {
	Start(path string, args ...string) (Process, error)
}

// ExecHost is the os/exec-backed Host.
type ExecHost struct{}

// Start launches the executable at path and begins streaming its output.
// The child is placed in its own process group (Unix) or created with
// CREATE_NEW_PROCESS_GROUP and no console window (Windows) so the whole
// tree can be terminated later.
func (ExecHost) Start(path string, args ...string) (Process, error) {
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", path, err)
	}

	p := &execProcess{
		cmd:    cmd,
		events: make(chan Event, 64),
	}

	p.wg.Add(2)
	go p.scanLines(stdout, EventStdout)
	go p.scanLines(stderr, EventStderr)
	go p.awaitExit()

	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	events chan Event
	wg     sync.WaitGroup
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Events() <-chan Event {
	return p.events
}

// scanLines relays one output stream line by line. The default
// bufio.Scanner line limit (64 KiB) is plenty for diagnostic output.
func (p *execProcess) scanLines(r io.Reader, kind EventKind) {
	defer p.wg.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.events <- Event{Kind: kind, Line: scanner.Text()}
	}
	// Scanner errors mean the pipe broke; the exit notice follows either way.
}

// awaitExit waits for both relays to drain, reaps the child, and emits the
// termination notice before closing the stream.
func (p *execProcess) awaitExit() {
	p.wg.Wait()

	var exitCode *int
	err := p.cmd.Wait()
	if err == nil {
		code := 0
		exitCode = &code
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		// ExitCode is -1 when the process died on a signal; the exit
		// code is then reported as absent.
		if code := exitErr.ExitCode(); code >= 0 {
			exitCode = &code
		}
	}

	p.events <- Event{Kind: EventExit, ExitCode: exitCode}
	close(p.events)
}
