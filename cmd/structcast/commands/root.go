package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/config"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
	jsonOutput   bool

	// settings holds the loaded settings file, if any.
	settings *config.File
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "structcast",
		Short: "structcast - pattern-based object instantiation",
		Long: `structcast builds runtime objects from declarative configuration.

Documents carry pattern nodes (_addr_, _attr_, _call_, _bind_, _obj_)
that resolve symbols, walk attributes and apply callables, all mediated
by a security policy with depth and time budgets.

Features:
  - Documents in YAML, JSON or CUE
  - Template expansion with variable groups
  - Starlark module files for custom symbols
  - OPA/rego resolution policies
  - SQLite audit log of resolution decisions`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			if settingsPath == "" {
				return nil
			}
			f, err := config.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			if err := f.Apply(); err != nil {
				return err
			}
			settings = f
			return nil
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newSecurityCommand())
	rootCmd.AddCommand(newAuditCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}
