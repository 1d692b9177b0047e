package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stateport/internal/core"
)

func newAuditCmd() *cobra.Command {
	var (
		filter  core.AuditFilter
		action  string
		outcome string
		since   time.Duration
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show audit ledger entries",
		Long: `List audit ledger entries, newest first.

Examples:
  stateport audit
  stateport audit --outcome rejected --since 24h
  stateport audit --import 5f0c... --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Action = core.AuditAction(action)
			filter.Outcome = core.AuditOutcome(outcome)
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			events, err := b.service.AuditLog(ctx, cliPrincipal(), filter)
			if err != nil {
				return fmt.Errorf("audit log: %w", err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no audit events")
				return nil
			}
			printAuditEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "filter by action: import, export, backup")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome")
	cmd.Flags().StringVar(&filter.AdminID, "admin", "", "filter by admin id")
	cmd.Flags().StringVar(&filter.ImportID, "import", "", "filter by import id")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	cmd.Flags().IntVar(&filter.Limit, "limit", core.DefaultAuditLimit, "maximum entries to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print entries as JSON")
	return cmd
}
