package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot workbook of every entity table",
		Long: `Export every non-empty entity table to an .xlsx workbook with one sheet per
kind and a trailing Export Info sheet. References are written as labels,
so the file can be re-imported into another instance.

Examples:
  stateport export                  # writes stateport_export_<time>.xlsx
  stateport export -o backup.xlsx
  stateport export -o dumps/        # directory: generated filename inside`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			snap, err := b.service.Export(ctx, cliPrincipal())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			path := snap.Filename
			if output != "" {
				path = output
				if info, err := os.Stat(output); err == nil && info.IsDir() {
					path = filepath.Join(output, snap.Filename)
				}
			}
			if err := os.WriteFile(path, snap.Data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(snap.Data))
			printSheetCounts(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory")
	return cmd
}
