package capability

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Summary is the discovery-safe description of a capability: metadata and
// presence flags only, never handler bodies.
type Summary struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	HasInput         bool     `json:"hasInput"`
	HasExecute       bool     `json:"hasExecute"`
	HasClientExecute bool     `json:"hasClientExecute"`
	HasRender        bool     `json:"hasRender"`
	HasMiddleware    bool     `json:"hasMiddleware"`
}

// Registry is a name-keyed store of capability definitions with
// insertion-ordered listing. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the module-level convenience registry. The engine never
// depends on it; callers that want isolation construct their own.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register inserts a definition, silently replacing an existing entry with
// the same name. Replacement keeps the original insertion position.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("capability definition is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.name]; !exists {
		r.order = append(r.order, def.name)
	} else {
		log.Debug().Str("capability", def.name).Msg("Capability replaced")
	}
	r.defs[def.name] = def

	log.Debug().Str("capability", def.name).Strs("tags", def.tags).Msg("Capability registered")

	return nil
}

// Get returns the definition by exact name, or nil when absent.
func (r *Registry) Get(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.defs[name]
}

// Remove deletes a definition, reporting whether one was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; !exists {
		return false
	}

	delete(r.defs, name)
	for i, existing := range r.order {
		if existing == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	log.Debug().Str("capability", name).Msg("Capability removed")

	return true
}

// List returns all definitions in insertion order.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// FindByTag returns definitions carrying the exact tag, insertion order.
func (r *Registry) FindByTag(tag string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := []*Definition{}
	for _, name := range r.order {
		if r.defs[name].HasTag(tag) {
			matches = append(matches, r.defs[name])
		}
	}
	return matches
}

// FindByAllTags returns definitions carrying every given tag.
func (r *Registry) FindByAllTags(tags []string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := []*Definition{}
	for _, name := range r.order {
		def := r.defs[name]
		all := true
		for _, tag := range tags {
			if !def.HasTag(tag) {
				all = false
				break
			}
		}
		if all {
			matches = append(matches, def)
		}
	}
	return matches
}

// Clear drops every definition.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs = make(map[string]*Definition)
	r.order = nil
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Execute looks up a capability by name and delegates to Run.
func (r *Registry) Execute(ctx context.Context, name string, input interface{}, inv *Invocation) (interface{}, error) {
	def := r.Get(name)
	if def == nil {
		return nil, &NotFoundError{Capability: name}
	}
	return Run(ctx, def, input, inv)
}

// Describe returns the discovery summary for a capability.
func (r *Registry) Describe(name string) (*Summary, error) {
	def := r.Get(name)
	if def == nil {
		return nil, &NotFoundError{Capability: name}
	}

	return &Summary{
		Name:             def.name,
		Description:      def.description,
		Tags:             def.Tags(),
		HasInput:         def.HasInput(),
		HasExecute:       def.HasExecute(),
		HasClientExecute: def.HasClientExecute(),
		HasRender:        def.HasRender(),
		HasMiddleware:    def.HasMiddleware(),
	}, nil
}

// DescribeAll returns summaries for every capability, insertion order.
func (r *Registry) DescribeAll() []*Summary {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.RUnlock()

	summaries := make([]*Summary, 0, len(names))
	for _, name := range names {
		summary, err := r.Describe(name)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
