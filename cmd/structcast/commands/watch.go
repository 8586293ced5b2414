package commands

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/config"
)

func newWatchCommand() *cobra.Command {
	var (
		flags    engineFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Re-render a document whenever it changes",
		Long: `Watch renders a document, then watches it on disk and renders
again after every change. Render failures are logged and watching
continues.`,
		Example: `  # Re-render on save
  structcast watch ./app.yaml

  # Watch with a longer debounce
  structcast watch --debounce 2s ./app.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, cleanup, err := newEngine(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			render := func(path string) {
				result, err := renderDocument(ctx, inst, path)
				if err != nil {
					log.Error().Err(err).Str("document", path).Msg("Render failed")
					return
				}
				if err := emit(result, false); err != nil {
					log.Error().Err(err).Msg("Output failed")
				}
			}

			render(args[0])

			w := config.NewWatcher(log.Logger, debounce)
			err = w.Watch(ctx, args, render)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&flags.policyDirs, "policy-dir", nil, "directories with rego policies")
	cmd.Flags().StringVar(&flags.auditDB, "audit-db", "", "SQLite file for the resolution audit log")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", 0, "instantiation depth budget (0 = default)")
	cmd.Flags().StringVar(&flags.maxDuration, "max-duration", "", "instantiation time budget, e.g. 10s")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay between change and re-render")
	cmd.Flags().StringVar(&flags.metricsListen, "metrics-listen", "", "address for the prometheus endpoint, e.g. :9090")
	cmd.Flags().StringVar(&flags.otlpEndpoint, "otlp-endpoint", "", "OTLP collector for traces, e.g. localhost:4317")

	return cmd
}
