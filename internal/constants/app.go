// Package constants centralizes application-wide constants for Siri Billing.
package constants

import "time"

// Application identity
const (
	// AppName is the display name of the application.
	AppName = "Siri Billing"

	// AppID is the short identifier used for directories and log files.
	AppID = "siri-billing"

	// SidecarBinaryName is the backend executable launched at startup.
	// Resolved relative to the shell executable; ".exe" is appended on Windows.
	SidecarBinaryName = "siri-billing-backend"
)

// Sidecar shutdown handshake
const (
	// ShutdownEndpoint is the backend's voluntary-shutdown endpoint.
	// The backend exposes it by convention; a failed POST is expected
	// when the backend is already gone and is logged as a warning only.
	ShutdownEndpoint = "http://localhost:8080/api/shutdown"

	// ShutdownHTTPTimeout bounds the shutdown POST.
	ShutdownHTTPTimeout = 5 * time.Second

	// ShutdownGracePeriod is the unconditional wait between the shutdown
	// POST and the force-kill. It is not shortened when the POST succeeds.
	ShutdownGracePeriod = 5 * time.Second
)

// Logging
const (
	// LogMaxSizeMB caps each rotating log file.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 3
)

// Event bus
const (
	// EventBusDefaultBuffer is the per-subscriber channel buffer.
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer caps the per-subscriber channel buffer.
	EventBusMaxBuffer = 4096
)

// Updater
const (
	// UpdateFeedRepo is the GitHub repository queried for releases.
	UpdateFeedRepo = "siri-labs/siri-billing"

	// UpdateCheckTimeout bounds the release-feed request.
	UpdateCheckTimeout = 5 * time.Second

	// UpdateCacheDuration is how long a check result stays valid.
	UpdateCacheDuration = 24 * time.Hour
)
