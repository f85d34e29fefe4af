// Package config provides configuration management for Siri Billing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/siri-labs/siri-billing/internal/constants"
)

// Settings is the optional user-level settings file for the desktop shell.
// Everything has a working default; the file only exists when a user (or
// support engineer) needs to override sidecar discovery or the shutdown
// handshake, typically while diagnosing a broken install.
//
// Config file location: <data dir>/settings.ini
//
// INI format:
//
//	[sidecar]
//	path = C:\Program Files\Siri Billing\siri-billing-backend.exe
//	shutdown_endpoint = http://localhost:8080/api/shutdown
//
//	[logging]
//	debug = false
//
//	[update]
//	feed_repo = siri-labs/siri-billing
type Settings struct {
	Sidecar SidecarSettings
	Logging LoggingSettings
	Update  UpdateSettings
}

// SidecarSettings overrides backend process discovery and shutdown.
type SidecarSettings struct {
	// Path overrides the bundled sidecar location. Empty = resolve next
	// to the shell executable.
	Path string `ini:"path"`

	// ShutdownEndpoint overrides the voluntary-shutdown URL.
	ShutdownEndpoint string `ini:"shutdown_endpoint"`
}

// LoggingSettings controls log verbosity.
type LoggingSettings struct {
	// Debug enables debug-level logging.
	Debug bool `ini:"debug"`
}

// UpdateSettings controls the release feed.
type UpdateSettings struct {
	// FeedRepo is the GitHub "owner/repo" queried for releases.
	FeedRepo string `ini:"feed_repo"`
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() *Settings {
	return &Settings{
		Sidecar: SidecarSettings{
			ShutdownEndpoint: constants.ShutdownEndpoint,
		},
		Update: UpdateSettings{
			FeedRepo: constants.UpdateFeedRepo,
		},
	}
}

// SettingsPath returns the settings file location.
func SettingsPath() string {
	return filepath.Join(DataDirectory(), "settings.ini")
}

// LoadSettings reads the settings file at path. A missing file is not an
// error: defaults are returned. An empty path means the default location.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}

	settings := DefaultSettings()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if err := file.Section("sidecar").MapTo(&settings.Sidecar); err != nil {
		return nil, fmt.Errorf("invalid [sidecar] section: %w", err)
	}
	if err := file.Section("logging").MapTo(&settings.Logging); err != nil {
		return nil, fmt.Errorf("invalid [logging] section: %w", err)
	}
	if err := file.Section("update").MapTo(&settings.Update); err != nil {
		return nil, fmt.Errorf("invalid [update] section: %w", err)
	}

	// Re-apply defaults for fields the file left blank.
	if settings.Sidecar.ShutdownEndpoint == "" {
		settings.Sidecar.ShutdownEndpoint = constants.ShutdownEndpoint
	}
	if settings.Update.FeedRepo == "" {
		settings.Update.FeedRepo = constants.UpdateFeedRepo
	}

	return settings, nil
}
