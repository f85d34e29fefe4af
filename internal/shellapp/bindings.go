// Package shellapp frontend bindings for updates, printing and status.
package shellapp

import (
	"context"
	"time"

	"github.com/siri-labs/siri-billing/internal/events"
	"github.com/siri-labs/siri-billing/internal/logging"
	"github.com/siri-labs/siri-billing/internal/printing"
	"github.com/siri-labs/siri-billing/internal/version"
)

// logInfo logs a message and mirrors it onto the event bus so the
// frontend log viewer sees shell activity too.
func (a *App) logInfo(source, message string) {
	shellLogger.Info().Str("source", source).Msg(message)
	a.bus.PublishLog(events.InfoLevel, source, message, nil)
}

func (a *App) logError(source, message string, err error) {
	shellLogger.Error().Str("source", source).Err(err).Msg(message)
	a.bus.PublishLog(events.ErrorLevel, source, message, err)
}

// UpdateCheckDTO contains version update information for the frontend.
type UpdateCheckDTO struct {
	HasUpdate      bool   `json:"hasUpdate"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion,omitempty"`
	ReleaseURL     string `json:"releaseUrl,omitempty"`
	Status         string `json:"status"`
	CheckedAt      string `json:"checkedAt"`
	Error          string `json:"error,omitempty"`
}

// CheckForUpdates checks the release feed for newer versions. Results are
// cached for 24 hours by the underlying checker.
func (a *App) CheckForUpdates() UpdateCheckDTO {
	a.logInfo("update", "Checking for updates...")

	dto := UpdateCheckDTO{
		CurrentVersion: version.Version,
		CheckedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	result, err := a.checker.Check(context.Background())
	if err != nil {
		a.logError("update", "Update check failed", err)
		dto.Error = err.Error()
		return dto
	}

	dto.HasUpdate = result.HasUpdate
	dto.LatestVersion = result.LatestVersion
	dto.ReleaseURL = result.ReleaseURL
	dto.Status = a.checker.Status(result)
	a.logInfo("update", dto.Status)
	return dto
}

// InstallResultDTO reports the outcome of an update download.
type InstallResultDTO struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// InstallUpdate downloads the latest release artifact for this platform.
// Progress is streamed to the frontend via billing:update_progress events.
func (a *App) InstallUpdate() InstallResultDTO {
	a.logInfo("update", "Installing update...")

	status, err := a.installer.Install(context.Background())
	if err != nil {
		a.logError("update", "Update install failed", err)
		return InstallResultDTO{Error: err.Error()}
	}
	a.logInfo("update", status)
	return InstallResultDTO{Status: status}
}

// PrinterListDTO carries the installed printer names.
type PrinterListDTO struct {
	Printers []string `json:"printers"`
	Error    string   `json:"error,omitempty"`
}

// ListPrinters returns the names of installed printers. Only supported on
// Windows; elsewhere the DTO carries a descriptive error.
func (a *App) ListPrinters() PrinterListDTO {
	names, err := printing.ListPrinters()
	if err != nil {
		a.logError("printing", "Printer query failed", err)
		return PrinterListDTO{Error: err.Error()}
	}
	return PrinterListDTO{Printers: names}
}

// PrintText sends plain text to the named printer. An empty printerName
// targets the default printer. Returns an error string, empty on success.
func (a *App) PrintText(content, printerName string) string {
	if err := printing.PrintText(content, printerName); err != nil {
		a.logError("printing", "Print failed", err)
		return err.Error()
	}
	a.logInfo("printing", "Print job submitted")
	return ""
}

// SidecarStatusDTO reports whether the backend process is running.
type SidecarStatusDTO struct {
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
}

// GetSidecarStatus returns the current backend process state.
func (a *App) GetSidecarStatus() SidecarStatusDTO {
	running, pid := a.manager.Status()
	return SidecarStatusDTO{Running: running, PID: pid}
}

// GetLogFilePath returns the active log file location, empty when file
// logging is not initialized.
func (a *App) GetLogFilePath() string {
	return logging.FileLogPath()
}

// NotifyWindowFocus receives focus change notifications from the
// frontend. Logged for session diagnostics, no side effects.
func (a *App) NotifyWindowFocus(focused bool) {
	shellLogger.Debug().Bool("focused", focused).Msg("Window focus changed")
}
