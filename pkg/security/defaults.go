package security

// DefaultBlockedModules are module names refused out of the box. The
// registry never carries these, but the block list stays enforced as
// defense in depth against permissive allowlists and foreign registries.
var DefaultBlockedModules = []string{
	// --- System & process management ---
	"os",
	"os.exec",
	"os.signal",
	"os.user",
	"syscall",

	// --- Code loading & memory safety ---
	"plugin",
	"unsafe",
	"reflect",
	"runtime",
	"runtime.debug",

	// --- Network ---
	"net",
	"net.http",
	"net.rpc",
	"net.smtp",

	// --- Filesystem & streams ---
	"io",
	"path.filepath",
}

// DefaultAllowedModules are the modules resolvable out of the box. A nil
// entry bypasses member-level checking for the module; the block list
// still applies.
var DefaultAllowedModules = map[string]*Members{
	"builtins":   nil,
	"strings":    nil,
	"math":       nil,
	"base64":     nil,
	"json":       nil,
	"uuid":       nil,
	"structcast": nil,
}

// DefaultDangerousAttributes are attribute names refused regardless of
// the member-check toggles.
var DefaultDangerousAttributes = []string{
	"__subclasses__",
	"__bases__",
	"__globals__",
	"__code__",
	"__dict__",
	"__class__",
	"__mro__",
	"__init__",
	"__import__",
}

// Default returns the out-of-the-box security posture: default-deny
// allowlisting, the default block list, dangerous-attribute blocking and
// every hygiene toggle enabled.
func Default() *Settings {
	allowed := make(map[string]*Members, len(DefaultAllowedModules))
	for name, members := range DefaultAllowedModules {
		allowed[name] = members.clone()
	}
	dangerous := make(map[string]struct{}, len(DefaultDangerousAttributes))
	for _, name := range DefaultDangerousAttributes {
		dangerous[name] = struct{}{}
	}
	return &Settings{
		BlockedModules:       append([]string(nil), DefaultBlockedModules...),
		AllowedModules:       allowed,
		DangerousAttributes:  dangerous,
		ASCIICheck:           true,
		ProtectedMemberCheck: true,
		PrivateMemberCheck:   true,
		HiddenCheck:          true,
		WorkingDirCheck:      true,
	}
}
