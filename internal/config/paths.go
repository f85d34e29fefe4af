// Package config provides configuration management for Siri Billing.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/siri-labs/siri-billing/internal/constants"
)

// DataDirectory returns the per-user application data directory.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Siri\Billing
//   - Unix: ~/.config/siri-billing
func DataDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), constants.AppID)
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Siri", "Billing")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.AppID)
		}
		return filepath.Join(homeDir, ".config", constants.AppID)
	}
	return filepath.Join(configDir, constants.AppID)
}

// LogDirectory returns the unified log directory used by the shell and the
// sidecar relay. All `*.log` files found here are deleted on startup before
// the rotating logger attaches.
func LogDirectory() string {
	return filepath.Join(DataDirectory(), "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
// Uses 0700 permissions to restrict log access to the owner.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// UpdatesDirectory returns where downloaded update packages are staged.
func UpdatesDirectory() string {
	return filepath.Join(DataDirectory(), "updates")
}

// LogFilePath returns the active rotating log file path.
func LogFilePath() string {
	return filepath.Join(LogDirectory(), constants.AppID+".log")
}

// SidecarPath resolves the backend executable. The sidecar is bundled next
// to the shell executable; a settings override takes precedence.
func SidecarPath(settings *Settings) string {
	if settings != nil && settings.Sidecar.Path != "" {
		return settings.Sidecar.Path
	}

	name := constants.SidecarBinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	exePath, err := os.Executable()
	if err != nil {
		// Fall back to a PATH lookup via the bare name.
		return name
	}
	return filepath.Join(filepath.Dir(exePath), name)
}
