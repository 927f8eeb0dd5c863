package provider

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

// Registry maps plugin names to the factories that build them. Provider
// entries of the model options refer to plugins by these names.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]spi.PluginFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]spi.PluginFactory)}
}

// Register adds a plugin factory. Names are unique.
func (r *Registry) Register(name string, factory spi.PluginFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(name, factory)
}

// MustRegister is Register for in-tree plugins; it panics on a clash.
func (r *Registry) MustRegister(name string, factory spi.PluginFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

func (r *Registry) add(name string, factory spi.PluginFactory) error {
	if name == "" {
		return fmt.Errorf("provider plugin name is empty")
	}
	if factory == nil {
		return fmt.Errorf("provider plugin %s has no factory", name)
	}
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("provider plugin %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// New instantiates the named plugin. The error lists the known plugins so
// that a typo in the model options is easy to spot.
func (r *Registry) New(name string) (spi.ProviderPlugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider plugin %q (known: %s)", name, strings.Join(r.List(), ", "))
	}
	plugin := factory()
	if plugin == nil {
		return nil, fmt.Errorf("provider plugin %s: factory returned nil", name)
	}
	return plugin, nil
}

// Has reports whether a plugin is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered plugin names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Merge adds every plugin of other. Nothing is added when a name clashes.
func (r *Registry) Merge(other *Registry) error {
	if other == nil || other == r {
		return nil
	}
	other.mu.RLock()
	incoming := maps.Clone(other.factories)
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range slices.Sorted(maps.Keys(incoming)) {
		if _, dup := r.factories[name]; dup {
			return fmt.Errorf("provider plugin %s is already registered", name)
		}
	}
	for name, factory := range incoming {
		if err := r.add(name, factory); err != nil {
			return err
		}
	}
	return nil
}
