package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stateport/internal/core"
)

func newImportCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a workbook into the entity tables",
		Long: `Run a workbook through the import pipeline: shape and signature checks,
content scan, structural validation, then one transaction that inserts new
rows and skips rows already present. Rejected rows are reported and do not
abort the import; a storage failure rolls the whole import back.

The operator counts against the per-admin import quota like any console user.

Examples:
  stateport import backup.xlsx
  stateport import legacy.xls --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			name := filepath.Base(path)
			res, err := b.service.Import(ctx, &core.ImportRequest{
				Data:      data,
				Filename:  name,
				MIMEType:  core.MIMEForExtension(filepath.Ext(name)),
				Principal: cliPrincipal(),
				Channel:   core.ChannelCLI,
			})
			if err != nil {
				msg := core.MapError(err)
				return fmt.Errorf("%s (%s): %w", msg.Message, msg.Code, err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printImportResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}
