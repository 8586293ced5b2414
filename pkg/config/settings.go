package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/structcast/structcast/pkg/pattern"
	"github.com/structcast/structcast/pkg/security"
	"github.com/structcast/structcast/pkg/template"
)

// File is the top-level settings document.
type File struct {
	Security  *SecuritySettings         `yaml:"security,omitempty"`
	Budgets   *Budgets                  `yaml:"budgets,omitempty" validate:"omitempty"`
	Variables map[string]map[string]any `yaml:"variables,omitempty"`
}

// SecuritySettings is the file form of the security policy. List and
// map fields that are absent keep their defaults; with extend_defaults
// set they add to the defaults instead of replacing them. Boolean
// toggles are pointers so an absent toggle keeps the default posture.
type SecuritySettings struct {
	ExtendDefaults       bool                `yaml:"extend_defaults"`
	BlockedModules       []string            `yaml:"blocked_modules" validate:"omitempty,dive,min=1"`
	AllowedModules       map[string][]string `yaml:"allowed_modules" validate:"omitempty,dive,dive,min=1"`
	DangerousAttributes  []string            `yaml:"dangerous_attributes" validate:"omitempty,dive,min=1"`
	AllowedDirectories   []string            `yaml:"allowed_directories" validate:"omitempty,dive,min=1"`
	ASCIICheck           *bool               `yaml:"ascii_check"`
	ProtectedMemberCheck *bool               `yaml:"protected_member_check"`
	PrivateMemberCheck   *bool               `yaml:"private_member_check"`
	HiddenCheck          *bool               `yaml:"hidden_check"`
	WorkingDirCheck      *bool               `yaml:"working_dir_check"`
}

// Budgets bounds a single instantiation run.
type Budgets struct {
	MaxDepth    int    `yaml:"max_depth" validate:"omitempty,min=1"`
	MaxDuration string `yaml:"max_duration"`
}

// Options converts the budgets into engine options. Zero fields
// produce no option and keep the engine defaults.
func (b *Budgets) Options() ([]pattern.Option, error) {
	if b == nil {
		return nil, nil
	}
	var opts []pattern.Option
	if b.MaxDepth > 0 {
		opts = append(opts, pattern.WithMaxDepth(b.MaxDepth))
	}
	if b.MaxDuration != "" {
		d, err := time.ParseDuration(b.MaxDuration)
		if err != nil {
			return nil, fmt.Errorf("parsing max_duration: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("max_duration must be positive, got %s", b.MaxDuration)
		}
		opts = append(opts, pattern.WithMaxDuration(d))
	}
	return opts, nil
}

// Groups returns the template variable groups declared in the file.
func (f *File) Groups() template.Groups {
	if f == nil || f.Variables == nil {
		return nil
	}
	return template.Groups(f.Variables)
}

// LoadSettings reads, strictly decodes and validates a settings file.
// Unknown keys are rejected so typos never silently weaken the policy.
func LoadSettings(path string) (*File, error) {
	resolved, err := security.CheckPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return ParseSettings(content)
}

// ParseSettings decodes and validates settings document content.
func ParseSettings(content []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}
	return &f, nil
}

// Apply builds a security.Settings from the file form and installs it
// as the active snapshot. A nil receiver or nil Security section keeps
// the current policy untouched.
func (f *File) Apply() error {
	if f == nil || f.Security == nil {
		return nil
	}
	return f.Security.apply()
}

func (s *SecuritySettings) apply() error {
	base := security.Default()

	if s.ExtendDefaults {
		base.BlockedModules = append(base.BlockedModules, s.BlockedModules...)
		for module, names := range s.AllowedModules {
			base.AllowedModules[module] = security.NewMembers(names...)
		}
		for _, attr := range s.DangerousAttributes {
			base.DangerousAttributes[attr] = struct{}{}
		}
	} else {
		if s.BlockedModules != nil {
			base.BlockedModules = append([]string(nil), s.BlockedModules...)
		}
		if s.AllowedModules != nil {
			base.AllowedModules = make(map[string]*security.Members, len(s.AllowedModules))
			for module, names := range s.AllowedModules {
				base.AllowedModules[module] = security.NewMembers(names...)
			}
		}
		if s.DangerousAttributes != nil {
			base.DangerousAttributes = make(map[string]struct{}, len(s.DangerousAttributes))
			for _, attr := range s.DangerousAttributes {
				base.DangerousAttributes[attr] = struct{}{}
			}
		}
	}

	if s.ASCIICheck != nil {
		base.ASCIICheck = *s.ASCIICheck
	}
	if s.ProtectedMemberCheck != nil {
		base.ProtectedMemberCheck = *s.ProtectedMemberCheck
	}
	if s.PrivateMemberCheck != nil {
		base.PrivateMemberCheck = *s.PrivateMemberCheck
	}
	if s.HiddenCheck != nil {
		base.HiddenCheck = *s.HiddenCheck
	}
	if s.WorkingDirCheck != nil {
		base.WorkingDirCheck = *s.WorkingDirCheck
	}

	security.Configure(base)

	for _, dir := range s.AllowedDirectories {
		if err := security.RegisterDirectory(dir); err != nil {
			return fmt.Errorf("registering directory %s: %w", dir, err)
		}
	}
	return nil
}
