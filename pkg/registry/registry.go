package registry

import (
	"fmt"
	"sync"
)

// Module is one named unit of the symbol table: a name and an immutable
// member map. Modules implement attribute lookup so that a resolved
// module can itself be refined by attribute nodes.
type Module struct {
	name    string
	members map[string]any
}

// NewModule builds a module from a member map. The map is copied.
func NewModule(name string, members map[string]any) *Module {
	copied := make(map[string]any, len(members))
	for k, v := range members {
		copied[k] = v
	}
	return &Module{name: name, members: copied}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Attr implements runtime.AttrGetter.
func (m *Module) Attr(name string) (any, bool) {
	v, ok := m.members[name]
	return v, ok
}

// Members returns the member names of the module.
func (m *Module) Members() []string {
	names := make([]string, 0, len(m.members))
	for name := range m.members {
		names = append(names, name)
	}
	return names
}

// String returns the diagnostic form of the module.
func (m *Module) String() string { return fmt.Sprintf("<module %s>", m.name) }

// Registry is the thread-safe name-to-module table.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module to the registry. Registering a name twice is an
// error; replacing a module wholesale requires unregistering first so the
// swap is explicit.
func (r *Registry) Register(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[m.name]; exists {
		return fmt.Errorf("module %q is already registered", m.name)
	}
	r.modules[m.name] = m
	return nil
}

// Unregister removes a module by name, reporting whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, present := r.modules[name]
	delete(r.modules, name)
	return present
}

// Lookup returns the named module.
func (r *Registry) Lookup(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry carrying the builtin modules. The same
// instance is returned on every call, so resolutions of builtin symbols
// are reference-stable.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
		for _, m := range standardModules() {
			if err := defaultRegistry.Register(m); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}
