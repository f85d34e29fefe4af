package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siri-labs/siri-billing/internal/config"
	"github.com/siri-labs/siri-billing/internal/events"
	"github.com/siri-labs/siri-billing/internal/update"
	"github.com/siri-labs/siri-billing/internal/version"
)

func newUpdateCmd() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and download application updates",
	}

	updateCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check whether a newer release is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := newChecker()

			result, err := checker.Check(GetContext())
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), checker.Status(result))
			if result.HasUpdate && result.ReleaseURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Release notes: %s\n", result.ReleaseURL)
			}
			return nil
		},
	})

	updateCmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Download the latest release for this platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := newChecker()
			installer := update.NewInstaller(checker, events.NewEventBus(16), config.UpdatesDirectory())

			status, err := installer.Install(GetContext())
			if err != nil {
				return fmt.Errorf("update install failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	})

	return updateCmd
}

func newChecker() *update.Checker {
	settings, err := config.LoadSettings("")
	if err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to load settings, using defaults")
		settings = config.DefaultSettings()
	}
	return update.NewChecker(settings.Update.FeedRepo, version.Version)
}
