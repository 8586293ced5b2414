package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/config"
	"github.com/structcast/structcast/pkg/pattern"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check documents for malformed pattern nodes",
		Long: `Validate parses documents without instantiating anything. It
reports how many pattern nodes each document carries and fails on
malformed shorthand forms.`,
		Example: `  # Validate a single document
  structcast validate ./app.yaml

  # Validate several documents
  structcast validate ./app.yaml ./jobs.cue`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(log.Logger)
			for _, path := range args {
				doc, err := loader.LoadDocument(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				count, err := countPatterns(doc)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Printf("%s: ok (%d pattern nodes)\n", path, count)
			}
			return nil
		},
	}
	return cmd
}

// countPatterns walks a document counting object patterns. Fragments
// that are plain data are descended into; malformed shorthand is an
// error.
func countPatterns(cfg any) (int, error) {
	if _, err := pattern.ParseObject(cfg); err == nil {
		return 1, nil
	} else if !errors.Is(err, pattern.ErrNotPattern) {
		return 0, err
	}

	total := 0
	switch t := cfg.(type) {
	case map[string]any:
		for _, v := range t {
			n, err := countPatterns(v)
			if err != nil {
				return 0, err
			}
			total += n
		}
	case map[any]any:
		for _, v := range t {
			n, err := countPatterns(v)
			if err != nil {
				return 0, err
			}
			total += n
		}
	case []any:
		for _, v := range t {
			n, err := countPatterns(v)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}
