package scene

import (
	"log/slog"
	"sort"
)

// Attribute names the dispatcher mutates.
const (
	AttrColor   = "color"
	AttrVisible = "visible"
)

// Object is a mutable scene primitive. Implementations are owned by the
// renderer; the dispatcher only sets attributes on them.
type Object interface {
	SetAttribute(name string, value any)
}

// Resolver looks up a scene element by id.
type Resolver func(elementID string) (Object, bool)

// Registry maps canonical object names to scene objects. It is populated
// once and never changes afterwards.
type Registry struct {
	names   []string
	objects map[string]Object
}

// NewRegistry resolves every vocabulary object to a scene element. Names
// whose element cannot be resolved are left out of the registry.
func NewRegistry(v *Vocabulary, resolve Resolver) *Registry {
	r := &Registry{objects: make(map[string]Object)}
	for name, id := range v.Objects() {
		obj, ok := resolve(id)
		if !ok || obj == nil {
			slog.Warn("scene element not found", "object", name, "element_id", id)
			continue
		}
		r.objects[name] = obj
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Get returns the object registered under name.
func (r *Registry) Get(name string) (Object, bool) {
	obj, ok := r.objects[name]
	return obj, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered objects.
func (r *Registry) Len() int { return len(r.names) }
