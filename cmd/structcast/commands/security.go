package commands

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/structcast/structcast/pkg/security"
)

// effectivePolicy is the serializable view of the active settings.
type effectivePolicy struct {
	BlockedModules       []string            `json:"blocked_modules" yaml:"blocked_modules"`
	AllowedModules       map[string][]string `json:"allowed_modules" yaml:"allowed_modules"`
	DangerousAttributes  []string            `json:"dangerous_attributes" yaml:"dangerous_attributes"`
	AllowedDirectories   []string            `json:"allowed_directories" yaml:"allowed_directories"`
	ASCIICheck           bool                `json:"ascii_check" yaml:"ascii_check"`
	ProtectedMemberCheck bool                `json:"protected_member_check" yaml:"protected_member_check"`
	PrivateMemberCheck   bool                `json:"private_member_check" yaml:"private_member_check"`
	HiddenCheck          bool                `json:"hidden_check" yaml:"hidden_check"`
	WorkingDirCheck      bool                `json:"working_dir_check" yaml:"working_dir_check"`
}

func newSecurityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Print the effective security policy",
		Long: `Security prints the active policy snapshot: blocked and allowed
modules, dangerous attributes, directory roots and check toggles. With
--settings the printed policy reflects the applied file.`,
		Example: `  # Show the default posture
  structcast security

  # Show the posture a settings file produces
  structcast -s settings.yaml security`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(snapshotPolicy(security.Current()), false)
		},
	}
	return cmd
}

func snapshotPolicy(s *security.Settings) effectivePolicy {
	p := effectivePolicy{
		BlockedModules:       append([]string(nil), s.BlockedModules...),
		AllowedModules:       make(map[string][]string, len(s.AllowedModules)),
		AllowedDirectories:   append([]string(nil), s.AllowedDirectories...),
		ASCIICheck:           s.ASCIICheck,
		ProtectedMemberCheck: s.ProtectedMemberCheck,
		PrivateMemberCheck:   s.PrivateMemberCheck,
		HiddenCheck:          s.HiddenCheck,
		WorkingDirCheck:      s.WorkingDirCheck,
	}
	sort.Strings(p.BlockedModules)

	for module, members := range s.AllowedModules {
		switch {
		case members == nil:
			p.AllowedModules[module] = nil
		case members.Any:
			p.AllowedModules[module] = []string{security.WildcardMember}
		default:
			names := make([]string, 0, len(members.Names))
			for n := range members.Names {
				names = append(names, n)
			}
			sort.Strings(names)
			p.AllowedModules[module] = names
		}
	}

	for attr := range s.DangerousAttributes {
		p.DangerousAttributes = append(p.DangerousAttributes, attr)
	}
	sort.Strings(p.DangerousAttributes)

	return p
}
