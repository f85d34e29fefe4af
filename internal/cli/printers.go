package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siri-labs/siri-billing/internal/printing"
)

func newPrintersCmd() *cobra.Command {
	printersCmd := &cobra.Command{
		Use:   "printers",
		Short: "Inspect installed printers (Windows only)",
	}

	printersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed printer names",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := printing.ListPrinters()
			if err != nil {
				return fmt.Errorf("printer query failed: %w", err)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No printers installed.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	return printersCmd
}
