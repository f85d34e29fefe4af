package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/siri-labs/siri-billing/internal/constants"
)

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.Sidecar.ShutdownEndpoint != constants.ShutdownEndpoint {
		t.Errorf("ShutdownEndpoint = %q, want default %q", settings.Sidecar.ShutdownEndpoint, constants.ShutdownEndpoint)
	}
	if settings.Update.FeedRepo != constants.UpdateFeedRepo {
		t.Errorf("FeedRepo = %q, want default %q", settings.Update.FeedRepo, constants.UpdateFeedRepo)
	}
	if settings.Logging.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	content := `[sidecar]
path = /opt/siri/siri-billing-backend
shutdown_endpoint = http://localhost:9090/api/shutdown

[logging]
debug = true

[update]
feed_repo = siri-labs/siri-billing-beta
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.Sidecar.Path != "/opt/siri/siri-billing-backend" {
		t.Errorf("Path = %q", settings.Sidecar.Path)
	}
	if settings.Sidecar.ShutdownEndpoint != "http://localhost:9090/api/shutdown" {
		t.Errorf("ShutdownEndpoint = %q", settings.Sidecar.ShutdownEndpoint)
	}
	if !settings.Logging.Debug {
		t.Error("Debug should be true")
	}
	if settings.Update.FeedRepo != "siri-labs/siri-billing-beta" {
		t.Errorf("FeedRepo = %q", settings.Update.FeedRepo)
	}
}

func TestLoadSettingsPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	if err := os.WriteFile(path, []byte("[logging]\ndebug = true\n"), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !settings.Logging.Debug {
		t.Error("Debug should be true")
	}
	if settings.Sidecar.ShutdownEndpoint != constants.ShutdownEndpoint {
		t.Errorf("ShutdownEndpoint = %q, want default", settings.Sidecar.ShutdownEndpoint)
	}
	if settings.Update.FeedRepo != constants.UpdateFeedRepo {
		t.Errorf("FeedRepo = %q, want default", settings.Update.FeedRepo)
	}
}

func TestLoadSettingsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	if err := os.WriteFile(path, []byte("[sidecar\npath ="), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("LoadSettings should fail on a malformed file")
	}
}

func TestLogFilePath(t *testing.T) {
	path := LogFilePath()
	if filepath.Base(path) != constants.AppID+".log" {
		t.Errorf("LogFilePath base = %q", filepath.Base(path))
	}
	if filepath.Dir(path) != LogDirectory() {
		t.Errorf("log file %q not under log directory %q", path, LogDirectory())
	}
}

func TestSidecarPathSettingsOverride(t *testing.T) {
	settings := DefaultSettings()
	settings.Sidecar.Path = "/custom/backend"

	if got := SidecarPath(settings); got != "/custom/backend" {
		t.Errorf("SidecarPath = %q, want override", got)
	}
}

func TestSidecarPathDefaultsNextToExecutable(t *testing.T) {
	got := SidecarPath(nil)

	want := constants.SidecarBinaryName
	if runtime.GOOS == "windows" {
		want += ".exe"
	}
	if filepath.Base(got) != want {
		t.Errorf("SidecarPath base = %q, want %q", filepath.Base(got), want)
	}
}

func TestDirectoriesShareDataRoot(t *testing.T) {
	root := DataDirectory()
	for _, dir := range []string{LogDirectory(), UpdatesDirectory()} {
		if !strings.HasPrefix(dir, root) {
			t.Errorf("%q is not under data directory %q", dir, root)
		}
	}
}
