package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/siri-labs/siri-billing/internal/constants"
	"github.com/siri-labs/siri-billing/internal/events"
	"github.com/siri-labs/siri-billing/internal/logging"
)

// progressLogInterval is how many bytes pass between progress log lines.
const progressLogInterval = 1 << 20 // 1 MiB

// Installer downloads the release asset for this platform into the
// updates directory. The user restarts to apply; no package execution
// happens here.
type Installer struct {
	checker *Checker
	bus     *events.EventBus
	destDir string
	logger  *logging.Logger
	client  *retryablehttp.Client
}

// retryLogger adapts zerolog to the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Retry chatter stays at debug; only warnings and errors surface.
	l.logger.Debug().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Interface("details", keysAndValues).Msg(msg)
}

// NewInstaller creates an installer that stages downloads under destDir.
// bus may be nil when no in-app progress display is attached.
func NewInstaller(checker *Checker, bus *events.EventBus, destDir string) *Installer {
	logger := logging.NewLogger("update")

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = &retryLogger{logger: logger}

	if bus == nil {
		bus = events.NewEventBus(0)
	}

	return &Installer{
		checker: checker,
		bus:     bus,
		destDir: destDir,
		logger:  logger,
		client:  client,
	}
}

// Install checks for an update and, when one exists, downloads the asset
// matching this platform. It returns a user-facing status string; all
// failures surface as errors and leave the application running.
func (i *Installer) Install(ctx context.Context) (string, error) {
	result, err := i.checker.Check(ctx)
	if err != nil {
		return "", fmt.Errorf("update check failed: %w", err)
	}

	if !result.HasUpdate {
		return NoUpdateStatus, nil
	}

	asset, err := selectAsset(result.Assets, runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", fmt.Errorf("release %s: %w", result.LatestVersion, err)
	}

	if err := os.MkdirAll(i.destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create updates directory: %w", err)
	}

	destPath := filepath.Join(i.destDir, asset.Name)
	if err := i.download(ctx, asset, destPath, result.LatestVersion); err != nil {
		return "", err
	}

	i.logger.Info().
		Str("version", result.LatestVersion).
		Str("path", destPath).
		Msg("Update downloaded")

	return fmt.Sprintf("Update %s downloaded to %s. Restart %s to apply.",
		result.LatestVersion, destPath, constants.AppName), nil
}

// download streams the asset to disk, logging progress by cumulative byte
// count and mirroring it onto the event bus.
func (i *Installer) download(ctx context.Context, asset Asset, destPath, version string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", asset.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	counter := &progressWriter{
		total:   asset.Size,
		version: version,
		logger:  i.logger,
		bus:     i.bus,
	}

	if _, err := io.Copy(out, io.TeeReader(resp.Body, counter)); err != nil {
		// Remove the partial download; a retry starts clean.
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("download interrupted: %w", err)
	}

	counter.finish()
	return nil
}

// selectAsset picks the release artifact for the given platform. Asset
// names are expected to carry the OS name and, when more than one
// architecture is published, the architecture.
func selectAsset(assets []Asset, goos, goarch string) (Asset, error) {
	var osMatch *Asset
	for idx := range assets {
		name := strings.ToLower(assets[idx].Name)
		if !strings.Contains(name, goos) {
			continue
		}
		if strings.Contains(name, goarch) {
			return assets[idx], nil
		}
		if osMatch == nil {
			osMatch = &assets[idx]
		}
	}
	if osMatch != nil {
		return *osMatch, nil
	}
	return Asset{}, fmt.Errorf("no asset published for %s/%s", goos, goarch)
}

// progressWriter counts bytes and emits periodic progress.
type progressWriter struct {
	total      int64
	downloaded int64
	lastLogged int64
	version    string
	logger     *logging.Logger
	bus        *events.EventBus
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.downloaded += int64(len(p))
	if w.downloaded-w.lastLogged >= progressLogInterval {
		w.lastLogged = w.downloaded
		w.logger.Info().
			Int64("bytes", w.downloaded).
			Int64("total", w.total).
			Msg("Downloading update")
		w.bus.PublishUpdateProgress(w.downloaded, w.total, w.version)
	}
	return len(p), nil
}

// finish emits the terminal progress entry.
func (w *progressWriter) finish() {
	w.logger.Info().
		Int64("bytes", w.downloaded).
		Int64("total", w.total).
		Msg("Download complete")
	w.bus.PublishUpdateProgress(w.downloaded, w.total, w.version)
}
