package scaffold

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the available project templates
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*Template),
	}
}

// Register adds a template after validating it
func (r *Registry) Register(tmpl *Template) error {
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[tmpl.Name]; exists {
		return fmt.Errorf("template %s already registered", tmpl.Name)
	}

	r.templates[tmpl.Name] = tmpl
	return nil
}

// Get retrieves a template by name
func (r *Registry) Get(name string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, exists := r.templates[name]
	if !exists {
		return nil, fmt.Errorf("template %s not found", name)
	}

	return tmpl, nil
}

// List returns all registered templates sorted by name
func (r *Registry) List() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]*Template, 0, len(r.templates))
	for _, tmpl := range r.templates {
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })

	return templates
}

// Exists checks if a template is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.templates[name]
	return exists
}

// Names returns the registered template names sorted
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, tmpl := range list {
		names[i] = tmpl.Name
	}
	return names
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterBuiltins registers the built-in project templates.
func RegisterBuiltins() error {
	templates := []*Template{
		NewStandardTemplate(),
		NewPostgresTemplate(),
		NewServiceTemplate(),
	}

	for _, tmpl := range templates {
		if defaultRegistry.Exists(tmpl.Name) {
			continue
		}
		if err := defaultRegistry.Register(tmpl); err != nil {
			return fmt.Errorf("failed to register template %s: %w", tmpl.Name, err)
		}
	}

	return nil
}
