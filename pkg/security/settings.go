package security

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// WildcardMember is the sentinel member name that permits every member of
// a module in configuration form ("math": ["*"]).
const WildcardMember = "*"

// Members is the per-module allowlist entry. A nil *Members on a module
// bypasses member-level checking entirely (the block list still applies).
type Members struct {
	// Any permits every member of the module.
	Any bool

	// Names are the individually permitted member names.
	Names map[string]struct{}
}

// NewMembers builds a Members entry from a list of names. The wildcard
// sentinel "*" sets Any.
func NewMembers(names ...string) *Members {
	m := &Members{Names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == WildcardMember {
			m.Any = true
			continue
		}
		m.Names[n] = struct{}{}
	}
	return m
}

// Contains reports whether the entry permits the named member.
func (m *Members) Contains(name string) bool {
	if m.Any {
		return true
	}
	_, ok := m.Names[name]
	return ok
}

func (m *Members) clone() *Members {
	if m == nil {
		return nil
	}
	names := make(map[string]struct{}, len(m.Names))
	for n := range m.Names {
		names[n] = struct{}{}
	}
	return &Members{Any: m.Any, Names: names}
}

// Settings is one immutable snapshot of the security policy. Every check
// is a pure function of (settings, input); the active snapshot is replaced
// wholesale via Configure, never mutated in place.
type Settings struct {
	// BlockedModules are module names refused by exact match or dotted
	// prefix, independent of the allowlist outcome.
	BlockedModules []string

	// AllowedModules maps module names to their permitted members. A
	// module absent from the map has no permitted members (default
	// deny). A present module with a nil entry bypasses member-level
	// checking.
	AllowedModules map[string]*Members

	// DangerousAttributes are attribute names refused regardless of the
	// member-check toggles.
	DangerousAttributes map[string]struct{}

	// ASCIICheck refuses attribute segments containing non-ASCII runes.
	ASCIICheck bool

	// ProtectedMemberCheck refuses single-underscore attribute segments.
	ProtectedMemberCheck bool

	// PrivateMemberCheck refuses double-underscore attribute segments.
	PrivateMemberCheck bool

	// HiddenCheck refuses paths containing dot-prefixed segments.
	HiddenCheck bool

	// WorkingDirCheck requires resolved paths to stay within the home
	// and working directories, or within AllowedDirectories.
	WorkingDirCheck bool

	// AllowedDirectories are extra resolved roots under which relative
	// module files may be found and loaded.
	AllowedDirectories []string
}

// Clone returns a deep copy of the settings.
func (s *Settings) Clone() *Settings {
	out := &Settings{
		BlockedModules:       append([]string(nil), s.BlockedModules...),
		AllowedModules:       make(map[string]*Members, len(s.AllowedModules)),
		DangerousAttributes:  make(map[string]struct{}, len(s.DangerousAttributes)),
		ASCIICheck:           s.ASCIICheck,
		ProtectedMemberCheck: s.ProtectedMemberCheck,
		PrivateMemberCheck:   s.PrivateMemberCheck,
		HiddenCheck:          s.HiddenCheck,
		WorkingDirCheck:      s.WorkingDirCheck,
		AllowedDirectories:   append([]string(nil), s.AllowedDirectories...),
	}
	for name, members := range s.AllowedModules {
		out.AllowedModules[name] = members.clone()
	}
	for name := range s.DangerousAttributes {
		out.DangerousAttributes[name] = struct{}{}
	}
	return out
}

var (
	active atomic.Pointer[Settings]

	// swapMu serializes read-modify-write updates (directory
	// registration); plain readers go through the atomic pointer only.
	swapMu sync.Mutex
)

func init() {
	active.Store(Default())
}

// Current returns the active settings snapshot. The returned value must
// be treated as read-only.
func Current() *Settings {
	return active.Load()
}

// Configure replaces the active settings wholesale. A nil argument
// restores the out-of-the-box posture.
func Configure(s *Settings) {
	swapMu.Lock()
	defer swapMu.Unlock()
	if s == nil {
		active.Store(Default())
		return
	}
	active.Store(s.Clone())
}

// RegisterDirectory adds a directory to the allowed search roots. The
// path is resolved and deduplicated; registering an already-registered
// directory is a logged no-op.
func RegisterDirectory(path string) error {
	resolved, err := resolveDirectory(path)
	if err != nil {
		return err
	}
	swapMu.Lock()
	defer swapMu.Unlock()
	cur := active.Load()
	for _, d := range cur.AllowedDirectories {
		if d == resolved {
			log.Warn().Str("path", path).Msg("directory is already registered, skip registering")
			return nil
		}
	}
	next := cur.Clone()
	next.AllowedDirectories = append(next.AllowedDirectories, resolved)
	active.Store(next)
	return nil
}

// UnregisterDirectory removes a previously registered directory. Removing
// a directory that was never registered is a logged no-op.
func UnregisterDirectory(path string) error {
	resolved, err := resolveDirectory(path)
	if err != nil {
		return err
	}
	swapMu.Lock()
	defer swapMu.Unlock()
	cur := active.Load()
	for i, d := range cur.AllowedDirectories {
		if d == resolved {
			next := cur.Clone()
			next.AllowedDirectories = append(next.AllowedDirectories[:i], next.AllowedDirectories[i+1:]...)
			active.Store(next)
			return nil
		}
	}
	log.Warn().Str("path", path).Msg("directory was not registered, skip unregistering")
	return nil
}

// ValidateImport checks the active settings; see Settings.ValidateImport.
func ValidateImport(module, symbol string) error {
	return Current().ValidateImport(module, symbol)
}

// ValidateAttribute checks the active settings; see
// Settings.ValidateAttribute.
func ValidateAttribute(dotted string) error {
	return Current().ValidateAttribute(dotted)
}

// CheckPath checks the active settings; see Settings.CheckPath.
func CheckPath(path string) (string, error) {
	return Current().CheckPath(path)
}
