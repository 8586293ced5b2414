package security

import (
	"strings"
	"unicode"
)

// ValidateImport reports whether the module/symbol pair may be resolved.
// The block list is enforced independently of the allowlist outcome:
// a blocklisted module is refused even when its allowlist entry is the
// member-check bypass.
func (s *Settings) ValidateImport(module, symbol string) error {
	subject := module + "." + symbol
	for _, blocked := range s.BlockedModules {
		if blocked == "" {
			continue
		}
		if module == blocked || strings.HasPrefix(module, blocked+".") {
			return &Error{Reason: ReasonBlocklisted, Subject: subject}
		}
	}
	members, present := s.AllowedModules[module]
	if !present {
		// Default deny: an unlisted module behaves as an empty
		// member set.
		return &Error{Reason: ReasonNotAllowlisted, Subject: subject}
	}
	if members != nil && !members.Contains(symbol) {
		return &Error{Reason: ReasonNotAllowlisted, Subject: subject}
	}
	return nil
}

// ValidateAttribute checks each segment of a dotted attribute path,
// failing on the first offending segment and reporting the partial path
// up to and including it.
func (s *Settings) ValidateAttribute(dotted string) error {
	segments := strings.Split(dotted, ".")
	for i, segment := range segments {
		if err := s.validateSegment(segment); err != nil {
			secErr, ok := err.(*Error)
			if !ok {
				return err
			}
			return &Error{Reason: secErr.Reason, Subject: strings.Join(segments[:i+1], ".")}
		}
	}
	return nil
}

func (s *Settings) validateSegment(segment string) error {
	if !isIdentifier(segment) || segment != strings.TrimSpace(segment) {
		return &Error{Reason: ReasonInvalidAttribute, Subject: segment}
	}
	if s.ASCIICheck && !isASCII(segment) {
		return &Error{Reason: ReasonNonASCIIAttribute, Subject: segment}
	}
	if _, dangerous := s.DangerousAttributes[segment]; dangerous {
		return &Error{Reason: ReasonDangerousAttribute, Subject: segment}
	}
	private := strings.HasPrefix(segment, "__")
	protected := strings.HasPrefix(segment, "_") && !private
	if s.PrivateMemberCheck && private {
		return &Error{Reason: ReasonPrivateMember, Subject: segment}
	}
	if s.ProtectedMemberCheck && protected {
		return &Error{Reason: ReasonProtectedMember, Subject: segment}
	}
	return nil
}

// isIdentifier reports whether s is a valid bare identifier: a letter or
// underscore followed by letters, digits or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
