package sidecar

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/siri-labs/siri-billing/internal/events"
	"github.com/siri-labs/siri-billing/internal/logging"
)

// Config holds lifecycle manager parameters. Production values come from
// internal/constants and the optional settings file.
type Config struct {
	// BinaryPath is the backend executable to spawn.
	BinaryPath string

	// ShutdownEndpoint is POSTed to during graceful shutdown.
	ShutdownEndpoint string

	// ShutdownTimeout bounds the shutdown POST.
	ShutdownTimeout time.Duration

	// GracePeriod is the unconditional wait between the shutdown POST and
	// the force-kill. It always elapses in full, even when the POST
	// succeeded or the handle is already gone.
	GracePeriod time.Duration
}

// Manager owns the backend process. It is safe for concurrent use: the
// window-close path (GracefulShutdown), the application-exit path
// (FinalCleanup) and the relay task may all race, and exactly one of the
// shutdown paths performs the OS-level termination.
type Manager struct {
	cfg    Config
	host   Host
	bus    *events.EventBus
	logger *logging.Logger

	cell       handleCell
	httpClient *http.Client
	killTree   func(pid int) error

	relayWG sync.WaitGroup
}

// New creates a lifecycle manager. bus may be nil when no in-app viewer is
// attached (CLI mode).
func New(cfg Config, host Host, bus *events.EventBus) *Manager {
	if bus == nil {
		bus = events.NewEventBus(0)
	}
	return &Manager{
		cfg:    cfg,
		host:   host,
		bus:    bus,
		logger: logging.NewLogger("sidecar"),
		httpClient: &http.Client{
			Timeout: cfg.ShutdownTimeout,
		},
		killTree: killProcessTree,
	}
}

// Start spawns the backend and begins relaying its output. A spawn failure
// is reported, not fatal: the application keeps running without a backend,
// which the log calls out prominently so a broken install is not mistaken
// for a healthy one.
func (m *Manager) Start() error {
	m.logger.Info().Str("binary", m.cfg.BinaryPath).Msg("Starting backend sidecar")
	m.bus.PublishSidecarState(events.SidecarStarting, 0, nil, m.cfg.BinaryPath)

	proc, err := m.host.Start(m.cfg.BinaryPath)
	if err != nil {
		m.logger.Error().Err(err).
			Str("binary", m.cfg.BinaryPath).
			Msg("BACKEND NOT RUNNING: sidecar failed to start; the application will continue without billing functions")
		m.bus.PublishSidecarState(events.SidecarFailed, 0, nil, err.Error())
		return err
	}

	if !m.cell.store(proc) {
		// A previous backend is still registered. Terminate the new spawn
		// rather than leak it; Start is only expected once per run.
		m.logger.Warn().Int("pid", proc.PID()).Msg("Sidecar already running, terminating duplicate spawn")
		if err := m.killTree(proc.PID()); err != nil {
			m.logger.Debug().Err(err).Msg("Duplicate spawn termination failed")
		}
		return nil
	}

	m.logger.Info().Int("pid", proc.PID()).Msg("Backend sidecar started")
	m.bus.PublishSidecarState(events.SidecarRunning, proc.PID(), nil, "")

	m.relayWG.Add(1)
	go m.relay(proc)
	return nil
}

// relay consumes the process event stream for the lifetime of the backend.
// Stdout lines become info entries, stderr lines error entries, and the
// termination notice a warning carrying the exit code when one exists.
// When the stream ends it clears the shared handle unless a shutdown path
// already took it; whichever of stream-end, close-event or exit-event acts
// first wins, and later ones see "already absent" and no-op.
func (m *Manager) relay(proc Process) {
	defer m.relayWG.Done()

	pid := proc.PID()
	for ev := range proc.Events() {
		switch ev.Kind {
		case EventStdout:
			m.logger.Info().Msg(ev.Line)
			m.bus.PublishLog(events.InfoLevel, "sidecar", ev.Line, nil)
		case EventStderr:
			m.logger.Error().Msg(ev.Line)
			m.bus.PublishLog(events.ErrorLevel, "sidecar", ev.Line, nil)
		case EventExit:
			entry := m.logger.Warn().Int("pid", pid)
			if ev.ExitCode != nil {
				entry = entry.Int("exit_code", *ev.ExitCode)
			}
			entry.Msg("Backend sidecar terminated")
			m.bus.PublishSidecarState(events.SidecarExited, pid, ev.ExitCode, "")
		}
	}

	if m.cell.clearIf(proc) {
		m.logger.Debug().Int("pid", pid).Msg("Sidecar handle cleared after stream end")
	}
}

// GracefulShutdown runs the ordered shutdown sequence on window close.
// Every step is best-effort and independently fallible:
//
//  1. while the handle is still present, POST the backend's shutdown
//     endpoint with a bounded timeout (failure is a warning: the endpoint
//     is a convention, and the backend may already be gone);
//  2. wait the full grace period regardless of step 1's outcome;
//  3. take the handle if still present and force-terminate the tree;
//  4. swallow termination failures (the OS reclaims orphans when the
//     parent exits, in the worst case).
//
// The call blocks its caller for up to ShutdownTimeout + GracePeriod;
// window-close handling is deliberately synchronous.
func (m *Manager) GracefulShutdown(ctx context.Context) {
	m.logger.Info().Msg("Window close requested, shutting down backend")

	if pid, ok := m.cell.peek(); ok {
		m.postShutdown(ctx, pid)
	} else {
		m.logger.Debug().Msg("No backend handle, skipping shutdown request")
	}

	// The grace window is not conditioned on the POST or on the handle:
	// a backend that accepted the request needs time to unwind.
	time.Sleep(m.cfg.GracePeriod)

	m.terminate("graceful shutdown")
	m.logger.Info().Msg("Backend shutdown sequence complete")
}

// FinalCleanup is the application-exit safety net. The exit event is not
// ordered after window close in all shutdown paths (a forced kill of the
// app fires only this one), so it repeats the take-and-terminate step
// without the HTTP/grace preamble. A no-op when the handle is absent.
func (m *Manager) FinalCleanup() {
	m.terminate("final cleanup")
}

// Status reports whether a backend handle is held and its pid.
func (m *Manager) Status() (running bool, pid int) {
	pid, running = m.cell.peek()
	return running, pid
}

// postShutdown asks the backend to exit voluntarily. Transport failures
// are expected (backend gone, endpoint not implemented) and logged as
// warnings, never errors.
func (m *Manager) postShutdown(ctx context.Context, pid int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.ShutdownEndpoint, nil)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to build shutdown request")
		return
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Warn().Err(err).
			Int("pid", pid).
			Str("endpoint", m.cfg.ShutdownEndpoint).
			Msg("Shutdown request failed, will force-terminate after grace period")
		return
	}
	resp.Body.Close()

	m.logger.Info().
		Int("pid", pid).
		Int("status", resp.StatusCode).
		Msg("Shutdown request delivered")
}

// terminate takes the handle and force-kills the process tree. Exactly one
// caller wins the take; the rest observe an absent handle and do nothing.
// Kill failures are logged at debug and not propagated.
func (m *Manager) terminate(reason string) {
	proc, ok := m.cell.take()
	if !ok {
		m.logger.Debug().Str("reason", reason).Msg("Sidecar handle already absent")
		return
	}

	pid := proc.PID()
	if err := m.killTree(pid); err != nil {
		m.logger.Debug().Err(err).Int("pid", pid).Msg("Force-terminate reported failure")
	} else {
		m.logger.Info().Int("pid", pid).Str("reason", reason).Msg("Backend process tree terminated")
	}
}
