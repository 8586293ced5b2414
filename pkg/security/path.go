package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ModuleFileExtension is the single source-file extension accepted for
// file-backed modules.
const ModuleFileExtension = ".star"

// CheckPath resolves a path, searching the allowed directories when the
// path is relative and not directly resolvable, and enforces the hidden-
// segment and working-directory containment checks. It returns the
// resolved absolute path.
func (s *Settings) CheckPath(path string) (string, error) {
	candidate := resolvePath(path)
	if candidate == "" && !filepath.IsAbs(path) {
		for _, dir := range s.AllowedDirectories {
			if candidate = resolvePath(filepath.Join(dir, path)); candidate != "" {
				break
			}
		}
	}
	if candidate == "" {
		return "", &NotFoundError{Path: path}
	}
	if s.WorkingDirCheck && !s.pathContained(candidate) {
		return "", &Error{Reason: ReasonOutsideAllowedDirs, Subject: path}
	}
	if s.HiddenCheck && hasHiddenSegment(candidate) {
		return "", &Error{Reason: ReasonHiddenPath, Subject: path}
	}
	return candidate, nil
}

func (s *Settings) pathContained(candidate string) bool {
	home, homeErr := os.UserHomeDir()
	cwd, cwdErr := os.Getwd()
	if homeErr == nil && cwdErr == nil && within(candidate, home) && within(candidate, cwd) {
		return true
	}
	for _, dir := range s.AllowedDirectories {
		if within(candidate, dir) {
			return true
		}
	}
	return false
}

// resolvePath resolves a path to its absolute, symlink-free form,
// returning "" when the path does not exist or cannot be resolved.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("failed to resolve path")
		return ""
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return ""
	}
	if _, err := os.Stat(resolved); err != nil {
		return ""
	}
	return resolved
}

func resolveDirectory(path string) (string, error) {
	resolved := resolvePath(path)
	if resolved == "" {
		return "", fmt.Errorf("path is not a valid directory: %s", path)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("path is not a valid directory: %s", path)
	}
	return resolved, nil
}

// within reports whether path is contained in base (or equal to it).
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func hasHiddenSegment(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment != "." && segment != ".." && strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
