package source

import (
	"github.com/rotisserie/eris"

	"github.com/paddock-labs/equinet/internal/model"
)

// Registry maps source names to their descriptors, preserving registration
// order for deterministic iteration.
type Registry struct {
	sources map[string]Descriptor
	order   []string
}

// NewRegistry creates a registry populated with the built-in sources.
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Descriptor)}
	for _, d := range builtins() {
		r.Register(d)
	}
	return r
}

// NewEmptyRegistry creates a registry with no sources, for tests and for
// deployments that configure sources entirely from file.
func NewEmptyRegistry() *Registry {
	return &Registry{sources: make(map[string]Descriptor)}
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d Descriptor) {
	if _, ok := r.sources[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.sources[d.Name] = d
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, error) {
	d, ok := r.sources[name]
	if !ok {
		return Descriptor{}, eris.Errorf("source: unknown source %q", name)
	}
	return d, nil
}

// Select returns descriptors matching the given names, or every descriptor
// when names is empty. Kind filtering keeps only sources that supply at
// least one requested kind.
func (r *Registry) Select(names []string, kinds []model.RecordKind) ([]Descriptor, error) {
	var picked []Descriptor
	if len(names) > 0 {
		for _, name := range names {
			d, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			picked = append(picked, d)
		}
	} else {
		picked = r.All()
	}

	if len(kinds) == 0 {
		return picked, nil
	}

	var out []Descriptor
	for _, d := range picked {
		for _, k := range kinds {
			if d.Supplies(k) {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

// AllNames returns every registered source name in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
