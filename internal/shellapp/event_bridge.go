package shellapp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/siri-labs/siri-billing/internal/events"
)

// EventBridge forwards events from the internal EventBus to the Wails
// runtime so the frontend can render a live log viewer and backend status.
type EventBridge struct {
	ctx          context.Context
	eventBus     *events.EventBus
	subscription <-chan events.Event

	// Throttling for high-frequency download progress events
	lastProgress     map[string]time.Time
	progressInterval time.Duration

	stopC   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge(ctx context.Context, eventBus *events.EventBus) *EventBridge {
	return &EventBridge{
		ctx:              ctx,
		eventBus:         eventBus,
		lastProgress:     make(map[string]time.Time),
		progressInterval: 100 * time.Millisecond,
		stopC:            make(chan struct{}),
	}
}

// Start begins forwarding events. Calling Start on a running bridge is a
// logged no-op.
func (eb *EventBridge) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.started {
		shellLogger.Warn().Msg("Event bridge already started, ignoring duplicate Start()")
		return nil
	}

	eb.subscription = eb.eventBus.SubscribeAll()
	if eb.subscription == nil {
		return fmt.Errorf("event bridge: failed to subscribe to event bus")
	}

	eb.started = true
	eb.wg.Add(1)
	go eb.forwardLoop()

	shellLogger.Debug().Msg("Event bridge started")
	return nil
}

// Stop stops forwarding events.
func (eb *EventBridge) Stop() {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		shellLogger.Warn().Msg("Event bridge not started or already stopped")
		return
	}
	eb.started = false
	eb.lastProgress = make(map[string]time.Time)
	sub := eb.subscription
	eb.mu.Unlock()

	close(eb.stopC)
	eb.wg.Wait()
	eb.eventBus.UnsubscribeAll(sub)

	shellLogger.Debug().Msg("Event bridge stopped")
}

func (eb *EventBridge) forwardLoop() {
	defer eb.wg.Done()

	for {
		select {
		case event, ok := <-eb.subscription:
			if !ok {
				return
			}
			eb.forwardEvent(event)

		case <-eb.stopC:
			return
		}
	}
}

func (eb *EventBridge) forwardEvent(event events.Event) {
	switch e := event.(type) {
	case *events.LogEvent:
		runtime.EventsEmit(eb.ctx, "billing:log", logEventToDTO(e))

	case *events.SidecarStateEvent:
		// State transitions are infrequent and must always reach the UI.
		runtime.EventsEmit(eb.ctx, "billing:sidecar", sidecarStateEventToDTO(e))

	case *events.UpdateProgressEvent:
		if eb.shouldThrottle(e.Version) && e.BytesDownloaded < e.BytesTotal {
			return
		}
		runtime.EventsEmit(eb.ctx, "billing:update_progress", updateProgressEventToDTO(e))
	}
}

func (eb *EventBridge) shouldThrottle(key string) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	now := time.Now()
	if last, ok := eb.lastProgress[key]; ok {
		if now.Sub(last) < eb.progressInterval {
			return true
		}
	}
	eb.lastProgress[key] = now
	return false
}

// DTO conversion functions for JSON-safe serialization

// LogEventDTO is the JSON-safe version of events.LogEvent.
type LogEventDTO struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Error     string `json:"error,omitempty"`
}

func logEventToDTO(e *events.LogEvent) LogEventDTO {
	dto := LogEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Message:   e.Message,
		Source:    e.Source,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}

// SidecarStateEventDTO is the JSON-safe version of events.SidecarStateEvent.
type SidecarStateEventDTO struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	PID       int    `json:"pid"`
	ExitCode  *int   `json:"exitCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

func sidecarStateEventToDTO(e *events.SidecarStateEvent) SidecarStateEventDTO {
	return SidecarStateEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		State:     string(e.State),
		PID:       e.PID,
		ExitCode:  e.ExitCode,
		Message:   e.Message,
	}
}

// UpdateProgressEventDTO is the JSON-safe version of events.UpdateProgressEvent.
type UpdateProgressEventDTO struct {
	Timestamp       string `json:"timestamp"`
	BytesDownloaded int64  `json:"bytesDownloaded"`
	BytesTotal      int64  `json:"bytesTotal"`
	Version         string `json:"version"`
}

func updateProgressEventToDTO(e *events.UpdateProgressEvent) UpdateProgressEventDTO {
	return UpdateProgressEventDTO{
		Timestamp:       e.Timestamp().Format(time.RFC3339Nano),
		BytesDownloaded: e.BytesDownloaded,
		BytesTotal:      e.BytesTotal,
		Version:         e.Version,
	}
}
