package specifier

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Resolver turns the text after a `name:` prefix into a constant value.
type Resolver func(arg string) (any, error)

var (
	resolverMu sync.RWMutex
	resolvers  = map[string]Resolver{
		// constant: the argument text itself.
		"constant": func(arg string) (any, error) {
			return arg, nil
		},
		// env: the named environment variable; unset is an error so a
		// missing variable never silently becomes an empty string.
		"env": func(arg string) (any, error) {
			v, ok := os.LookupEnv(arg)
			if !ok {
				return nil, fmt.Errorf("environment variable %q is not set", arg)
			}
			return v, nil
		},
	}
)

// RegisterResolver registers a named resolver. Registering a name twice
// is an error.
func RegisterResolver(name string, fn Resolver) error {
	resolverMu.Lock()
	defer resolverMu.Unlock()
	if _, ok := resolvers[name]; ok {
		return fmt.Errorf("resolver %q is already registered", name)
	}
	resolvers[name] = fn
	return nil
}

// lookupResolver finds the resolver whose `name:` prefix starts the raw
// spec, case-insensitively, and returns the remaining argument.
func lookupResolver(raw string) (Resolver, string, bool) {
	lower := strings.ToLower(raw)
	resolverMu.RLock()
	defer resolverMu.RUnlock()
	for name, fn := range resolvers {
		prefix := name + ":"
		if strings.HasPrefix(lower, prefix) {
			return fn, strings.TrimSpace(raw[len(prefix):]), true
		}
	}
	return nil, "", false
}
