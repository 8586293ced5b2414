package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/audit"
)

func newAuditCommand() *cobra.Command {
	var (
		dbPath  string
		outcome string
		module  string
		since   time.Duration
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded resolution decisions",
		Long: `Audit lists the resolution decisions recorded during rendering
with --audit-db, newest first.`,
		Example: `  # Last 100 decisions
  structcast audit --db audit.db

  # Denials for a module in the last day
  structcast audit --db audit.db --outcome denied --module os.exec --since 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := audit.NewStore(audit.Config{Path: dbPath})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := audit.Filter{
				Outcome: audit.Outcome(outcome),
				Module:  module,
				Limit:   limit,
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			events, err := store.List(ctx, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return emit(events, true)
			}
			for _, e := range events {
				line := fmt.Sprintf("%s  %-7s  %-9s  %s", e.Timestamp.Format(time.RFC3339), e.Outcome, e.Operation, e.Address)
				if e.Reason != "" {
					line += "  (" + e.Reason + ")"
				}
				fmt.Println(line)
			}
			fmt.Printf("%d events\n", len(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite audit database path")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (allowed, denied, error)")
	cmd.Flags().StringVar(&module, "module", "", "filter by module name")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this age, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
