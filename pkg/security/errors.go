package security

import (
	"errors"
	"fmt"
)

// Reason classifies a security refusal.
type Reason string

const (
	// ReasonNotAllowlisted indicates the module/symbol pair is not covered
	// by the import allowlist.
	ReasonNotAllowlisted Reason = "not_allowlisted"

	// ReasonBlocklisted indicates the module matched the block list by
	// exact name or dotted prefix.
	ReasonBlocklisted Reason = "blocklisted"

	// ReasonInvalidAttribute indicates an attribute segment is not a valid
	// bare identifier.
	ReasonInvalidAttribute Reason = "invalid_attribute"

	// ReasonNonASCIIAttribute indicates an attribute segment contains
	// non-ASCII characters while ASCII-only mode is active.
	ReasonNonASCIIAttribute Reason = "non_ascii_attribute"

	// ReasonDangerousAttribute indicates an always-blocked attribute name.
	ReasonDangerousAttribute Reason = "dangerous_attribute"

	// ReasonPrivateMember indicates a double-underscore attribute segment.
	ReasonPrivateMember Reason = "private_member"

	// ReasonProtectedMember indicates a single-underscore attribute segment.
	ReasonProtectedMember Reason = "protected_member"

	// ReasonOutsideAllowedDirs indicates a path resolved outside of the
	// allowed directories.
	ReasonOutsideAllowedDirs Reason = "outside_allowed_directories"

	// ReasonHiddenPath indicates a path with a hidden (dot-prefixed)
	// segment.
	ReasonHiddenPath Reason = "hidden_path"

	// ReasonModuleFile indicates a file-backed module with an unsupported
	// file extension.
	ReasonModuleFile Reason = "module_file"
)

// Error is the typed failure returned by every policy check. It names the
// offending symbol, attribute or path text but never an object
// representation.
type Error struct {
	// Reason is the refusal classification.
	Reason Reason

	// Subject is the offending module.symbol, attribute path or
	// filesystem path.
	Subject string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Reason {
	case ReasonNotAllowlisted:
		return fmt.Sprintf("blocked import attempt (not in allowlist): %s", e.Subject)
	case ReasonBlocklisted:
		return fmt.Sprintf("blocked import attempt (blocklisted): %s", e.Subject)
	case ReasonInvalidAttribute:
		return fmt.Sprintf("invalid attribute access attempt: %q", e.Subject)
	case ReasonNonASCIIAttribute:
		return fmt.Sprintf("non-ASCII attribute access attempt: %q", e.Subject)
	case ReasonDangerousAttribute:
		return fmt.Sprintf("dangerous attribute access attempt: %q", e.Subject)
	case ReasonPrivateMember:
		return fmt.Sprintf("private member access attempt: %q", e.Subject)
	case ReasonProtectedMember:
		return fmt.Sprintf("protected member access attempt: %q", e.Subject)
	case ReasonOutsideAllowedDirs:
		return fmt.Sprintf("path is outside of allowed directories: %s", e.Subject)
	case ReasonHiddenPath:
		return fmt.Sprintf("path contains hidden directories which are not allowed: %s", e.Subject)
	case ReasonModuleFile:
		return fmt.Sprintf("module file must be a %s file, got: %s", ModuleFileExtension, e.Subject)
	default:
		return fmt.Sprintf("security violation (%s): %s", e.Reason, e.Subject)
	}
}

// IsSecurityError reports whether err (or anything it wraps) is a security
// policy refusal.
func IsSecurityError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// NotFoundError indicates a path that could not be resolved, directly or
// through the registered search directories. It is not a security refusal.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}
