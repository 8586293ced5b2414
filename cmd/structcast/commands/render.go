package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/specifier"
)

func newRenderCommand() *cobra.Command {
	var (
		flags      engineFlags
		selectPath string
	)

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Instantiate a document and print the result",
		Long: `Render loads a document, expands its templates and instantiates
every pattern node in it, printing the final structure.

Callables in the result (from _addr_ or _bind_ nodes without a call)
are shown as placeholders since they have no serial form.`,
		Example: `  # Render a YAML document
  structcast render ./app.yaml

  # Render with a settings file and JSON output
  structcast -s settings.yaml --json render ./app.cue

  # Record resolution decisions and enforce rego policies
  structcast render --audit-db audit.db --policy-dir ./policies ./app.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, cleanup, err := newEngine(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			log.Info().Str("document", args[0]).Msg("Rendering document")
			result, err := renderDocument(ctx, inst, args[0])
			if err != nil {
				return err
			}
			if selectPath != "" {
				path, err := specifier.ParsePath(selectPath)
				if err != nil {
					return err
				}
				result, err = specifier.Access(result, path, specifier.WithStrict(true))
				if err != nil {
					return err
				}
			}
			return emit(result, false)
		},
	}

	cmd.Flags().StringSliceVar(&flags.policyDirs, "policy-dir", nil, "directories with rego policies")
	cmd.Flags().StringVar(&flags.auditDB, "audit-db", "", "SQLite file for the resolution audit log")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", 0, "instantiation depth budget (0 = default)")
	cmd.Flags().StringVar(&flags.maxDuration, "max-duration", "", "instantiation time budget, e.g. 10s")
	cmd.Flags().StringVar(&selectPath, "select", "", "dotted path to print from the result, e.g. server.port")
	cmd.Flags().StringVar(&flags.metricsListen, "metrics-listen", "", "address for the prometheus endpoint, e.g. :9090")
	cmd.Flags().StringVar(&flags.otlpEndpoint, "otlp-endpoint", "", "OTLP collector for traces, e.g. localhost:4317")

	return cmd
}
