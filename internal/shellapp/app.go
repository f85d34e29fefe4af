// Package shellapp provides the Wails-based desktop shell for Siri Billing.
// The shell hosts the web frontend, manages the backend sidecar process and
// exposes updater and printer bindings to the frontend.
package shellapp

import (
	"context"
	"embed"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/siri-labs/siri-billing/internal/config"
	"github.com/siri-labs/siri-billing/internal/constants"
	"github.com/siri-labs/siri-billing/internal/events"
	"github.com/siri-labs/siri-billing/internal/logging"
	"github.com/siri-labs/siri-billing/internal/sidecar"
	"github.com/siri-labs/siri-billing/internal/update"
	"github.com/siri-labs/siri-billing/internal/version"
)

// Assets holds the embedded frontend files, passed in from main package.
var Assets embed.FS

// shellLogger is the package-level logger for GUI mode.
var shellLogger *logging.Logger

// App is the main Wails application struct.
// All public methods are exposed to the frontend as callable functions.
type App struct {
	ctx      context.Context
	settings *config.Settings

	bus       *events.EventBus
	manager   *sidecar.Manager
	checker   *update.Checker
	installer *update.Installer

	eventBridge *EventBridge
}

// NewApp creates a new application instance around an already-wired
// sidecar manager and update checker.
func NewApp(settings *config.Settings, bus *events.EventBus, manager *sidecar.Manager, checker *update.Checker, installer *update.Installer) *App {
	return &App{
		settings:  settings,
		bus:       bus,
		manager:   manager,
		checker:   checker,
		installer: installer,
	}
}

// startup is called when the app starts. The context is saved so we can
// call the Wails runtime methods. The backend sidecar is launched here so
// its output lands in the freshly initialized log file.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.eventBridge = NewEventBridge(ctx, a.bus)
	if err := a.eventBridge.Start(); err != nil {
		shellLogger.Error().Err(err).Msg("Failed to start event bridge")
	}

	if err := a.manager.Start(); err != nil {
		// The manager has already logged the failure prominently. The
		// shell keeps running so the frontend can show what happened.
		shellLogger.Error().Err(err).Msg("Backend sidecar unavailable")
	}

	shellLogger.Info().Str("version", version.Version).Msg("Siri Billing shell started")
}

// domReady is called after the frontend DOM is ready.
func (a *App) domReady(ctx context.Context) {
	shellLogger.Debug().Msg("Frontend DOM ready")
}

// beforeClose is called when the window close is requested. The backend
// is asked to shut down gracefully before the window is allowed to close.
// Return true to prevent closing.
func (a *App) beforeClose(ctx context.Context) bool {
	a.manager.GracefulShutdown(ctx)
	return false
}

// shutdown is called at application termination.
func (a *App) shutdown(ctx context.Context) {
	shellLogger.Info().Msg("Siri Billing shell shutting down")

	a.manager.FinalCleanup()

	if a.eventBridge != nil {
		a.eventBridge.Stop()
	}

	logging.CloseFileLog()
}

// Run launches the Wails GUI application.
func Run(args []string) error {
	shellLogger = logging.NewLogger("shell")

	if os.Getenv("SIRI_BILLING_DEBUG") != "" {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		shellLogger.Info().Msg("Debug logging enabled via SIRI_BILLING_DEBUG")
	}

	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use '" + constants.AppID + "' subcommands for CLI mode")
		}
	}

	if !EnsureSingleInstance() {
		shellLogger.Warn().Msg("Another instance is already running")
		return nil
	}

	settings, err := config.LoadSettings("")
	if err != nil {
		shellLogger.Warn().Err(err).Msg("Failed to load settings, using defaults")
		settings = config.DefaultSettings()
	}
	if settings.Logging.Debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := initFileLogging(); err != nil {
		shellLogger.Warn().Err(err).Msg("File logging unavailable, continuing with console only")
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)

	manager := sidecar.New(sidecar.Config{
		BinaryPath:       config.SidecarPath(settings),
		ShutdownEndpoint: settings.Sidecar.ShutdownEndpoint,
		ShutdownTimeout:  constants.ShutdownHTTPTimeout,
		GracePeriod:      constants.ShutdownGracePeriod,
	}, sidecar.ExecHost{}, bus)

	checker := update.NewChecker(settings.Update.FeedRepo, version.Version)
	installer := update.NewInstaller(checker, bus, config.UpdatesDirectory())

	app := NewApp(settings, bus, manager, checker, installer)

	windowTitle := fmt.Sprintf("%s %s", constants.AppName, version.Version)

	err = wails.Run(&options.App{
		Title:     windowTitle,
		Width:     1280,
		Height:    800,
		MinWidth:  1024,
		MinHeight: 700,
		AssetServer: &assetserver.Options{
			Assets: Assets,
		},
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   constants.AppName,
				Message: fmt.Sprintf("Version %s\n\nDesktop shell for the Siri Billing point of sale.", version.Version),
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
		},
	})

	if err != nil {
		return fmt.Errorf("wails application error: %w", err)
	}

	return nil
}

// initFileLogging prepares the rotating log file. Stale rotated logs from
// previous sessions are removed first so the directory holds only the
// current session's files.
func initFileLogging() error {
	if err := config.EnsureLogDirectory(); err != nil {
		return err
	}
	if err := logging.CleanLogDirectory(config.LogDirectory()); err != nil {
		shellLogger.Warn().Err(err).Msg("Failed to clean old log files")
	}
	logging.InitFileLog(config.LogFilePath())
	return nil
}
