package plugin

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// Registry indexes loaded plugins by name and stage, in registration order.
type Registry struct {
	sync.RWMutex
	plugins map[string]*Plugin
	order   []*Plugin
	byStage map[interop.ShaderKind][]*Plugin
	logger  *zap.Logger
}

// NewRegistry creates a new plugin registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]*Plugin),
		byStage: make(map[interop.ShaderKind][]*Plugin),
		logger:  logger.With(zap.String("component", "plugin-registry")),
	}
}

// Register adds a plugin to the registry.
func (r *Registry) Register(p *Plugin) error {
	r.Lock()
	defer r.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return &PluginAlreadyRegisteredError{PluginName: name}
	}

	r.plugins[name] = p
	r.order = append(r.order, p)
	for _, kind := range p.Stages() {
		r.byStage[kind] = append(r.byStage[kind], p)
	}

	r.logger.Info("Plugin registered",
		zap.String("name", name),
		zap.Strings("stages", p.Manifest.Stages),
	)

	return nil
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	r.RLock()
	defer r.RUnlock()

	p, ok := r.plugins[name]
	return p, ok
}

// LookupByStage returns the plugins that compile kind, first registered first.
func (r *Registry) LookupByStage(kind interop.ShaderKind) []*Plugin {
	r.RLock()
	defer r.RUnlock()

	return slices.Clone(r.byStage[kind])
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []*Plugin {
	r.RLock()
	defer r.RUnlock()

	return slices.Clone(r.order)
}

// Unregister removes a plugin from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	p, ok := r.plugins[name]
	if !ok {
		return
	}

	remove := func(list []*Plugin) []*Plugin {
		return slices.DeleteFunc(list, func(q *Plugin) bool { return q == p })
	}
	for _, kind := range p.Stages() {
		r.byStage[kind] = remove(r.byStage[kind])
	}
	r.order = remove(r.order)
	delete(r.plugins, name)

	r.logger.Info("Plugin unregistered", zap.String("name", name))
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.plugins)
}
