package security

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateImport_DefaultDeny(t *testing.T) {
	s := Default()

	if err := s.ValidateImport("totally.unknown", "Thing"); err == nil {
		t.Fatal("expected unlisted module to be denied")
	} else if !strings.Contains(err.Error(), "totally.unknown.Thing") {
		t.Errorf("error should name the offending address, got: %v", err)
	}
}

func TestValidateImport_Allowlist(t *testing.T) {
	s := Default()
	s.AllowedModules["mypkg"] = NewMembers("Alpha", "Beta")

	tests := []struct {
		name    string
		module  string
		symbol  string
		wantErr bool
	}{
		{"bypass entry", "builtins", "list", false},
		{"named member", "mypkg", "Alpha", false},
		{"other named member", "mypkg", "Beta", false},
		{"unnamed member", "mypkg", "Gamma", true},
		{"unlisted module", "otherpkg", "Alpha", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateImport(tt.module, tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateImport(%s, %s) error = %v, wantErr %v", tt.module, tt.symbol, err, tt.wantErr)
			}
		})
	}
}

func TestValidateImport_WildcardMember(t *testing.T) {
	s := Default()
	s.AllowedModules["mypkg"] = NewMembers(WildcardMember)

	if err := s.ValidateImport("mypkg", "Anything"); err != nil {
		t.Fatalf("wildcard member set should permit every member: %v", err)
	}
}

func TestValidateImport_BlocklistWinsOverBypass(t *testing.T) {
	s := Default()
	// Whitelist every blocked module with the member-check bypass; the
	// block list must still refuse them.
	for _, blocked := range DefaultBlockedModules {
		s.AllowedModules[blocked] = nil
	}

	for _, blocked := range DefaultBlockedModules {
		err := s.ValidateImport(blocked, "anything")
		if err == nil {
			t.Errorf("blocked module %q resolved despite block list", blocked)
			continue
		}
		var secErr *Error
		if !errors.As(err, &secErr) {
			t.Errorf("expected *Error for %q, got %T", blocked, err)
			continue
		}
		if secErr.Reason != ReasonBlocklisted {
			t.Errorf("expected blocklist reason for %q, got %s", blocked, secErr.Reason)
		}
		if !strings.Contains(err.Error(), blocked) {
			t.Errorf("error should name the blocked module %q, got: %v", blocked, err)
		}
	}
}

func TestValidateImport_BlocklistDottedPrefix(t *testing.T) {
	s := Default()
	s.AllowedModules["os.exec.sub"] = nil

	if err := s.ValidateImport("os.exec.sub", "Run"); err == nil {
		t.Fatal("expected submodule of blocked module to be refused")
	}
	// A module merely sharing the prefix string is not blocked.
	s.AllowedModules["osmosis"] = nil
	if err := s.ValidateImport("osmosis", "Flow"); err != nil {
		t.Fatalf("prefix matching must be dotted, not textual: %v", err)
	}
}

func TestValidateAttribute_DangerousNames(t *testing.T) {
	s := Default()

	for _, name := range DefaultDangerousAttributes {
		err := s.ValidateAttribute(name)
		if err == nil {
			t.Errorf("dangerous attribute %q passed validation", name)
			continue
		}
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name the attribute %q, got: %v", name, err)
		}
		if !IsSecurityError(err) {
			t.Errorf("expected a security error for %q, got %T", name, err)
		}
	}
}

func TestValidateAttribute_Segments(t *testing.T) {
	s := Default()

	tests := []struct {
		name    string
		dotted  string
		reason  Reason
		wantErr bool
	}{
		{"plain name", "value", "", false},
		{"dotted path", "config.items.count", "", false},
		{"underscore inside", "snake_case", "", false},
		{"empty segment", "a..b", ReasonInvalidAttribute, true},
		{"leading digit", "1abc", ReasonInvalidAttribute, true},
		{"whitespace", "a. b", ReasonInvalidAttribute, true},
		{"private", "__secrets", ReasonPrivateMember, true},
		{"protected", "_internal", ReasonProtectedMember, true},
		{"non-ascii", "attributé", ReasonNonASCIIAttribute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateAttribute(tt.dotted)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAttribute(%q) error = %v, wantErr %v", tt.dotted, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var secErr *Error
			if !errors.As(err, &secErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if secErr.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", secErr.Reason, tt.reason)
			}
		})
	}
}

func TestValidateAttribute_ReportsPartialPath(t *testing.T) {
	s := Default()

	err := s.ValidateAttribute("ok.also_ok._bad.never_reached")
	if err == nil {
		t.Fatal("expected protected segment to fail")
	}
	var secErr *Error
	if !errors.As(err, &secErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if secErr.Subject != "ok.also_ok._bad" {
		t.Errorf("subject = %q, want partial path up to offender", secErr.Subject)
	}
}

func TestValidateAttribute_TogglesOff(t *testing.T) {
	s := Default()
	s.ProtectedMemberCheck = false
	s.PrivateMemberCheck = false
	s.ASCIICheck = false

	for _, dotted := range []string{"_internal", "__private", "attributé"} {
		if err := s.ValidateAttribute(dotted); err != nil {
			t.Errorf("ValidateAttribute(%q) with checks disabled: %v", dotted, err)
		}
	}
	// Dangerous attributes stay blocked regardless of toggles.
	if err := s.ValidateAttribute("__class__"); err == nil {
		t.Error("dangerous attribute must be refused even with member checks off")
	}
}

func TestConfigureRestoresDefaults(t *testing.T) {
	custom := Default()
	custom.AllowedModules["custom"] = nil
	Configure(custom)
	defer Configure(nil)

	if err := ValidateImport("custom", "Thing"); err != nil {
		t.Fatalf("custom allowlist not active: %v", err)
	}

	Configure(nil)
	if err := ValidateImport("custom", "Thing"); err == nil {
		t.Fatal("defaults not restored after Configure(nil)")
	}
}
