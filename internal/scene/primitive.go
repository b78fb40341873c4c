package scene

import (
	"maps"
	"sort"
	"sync"
)

// Primitive is an in-memory scene object recording its attributes.
type Primitive struct {
	id    string
	mu    sync.RWMutex
	attrs map[string]any
}

// NewPrimitive creates a visible primitive with the given element id.
func NewPrimitive(id string) *Primitive {
	return &Primitive{id: id, attrs: map[string]any{AttrVisible: true}}
}

// ID returns the element id.
func (p *Primitive) ID() string { return p.id }

// SetAttribute implements Object.
func (p *Primitive) SetAttribute(name string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs[name] = value
}

// Attribute returns the current value of name.
func (p *Primitive) Attribute(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.attrs[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (p *Primitive) Attributes() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.attrs)
}

// Scene is a set of in-memory primitives addressable by element id.
type Scene struct {
	elements map[string]*Primitive
}

// NewScene creates a primitive for every element id.
func NewScene(ids ...string) *Scene {
	s := &Scene{elements: make(map[string]*Primitive, len(ids))}
	for _, id := range ids {
		s.elements[id] = NewPrimitive(id)
	}
	return s
}

// NewSceneFor creates a scene holding one primitive per vocabulary object.
func NewSceneFor(v *Vocabulary) *Scene {
	ids := make([]string, 0)
	for _, id := range v.Objects() {
		ids = append(ids, id)
	}
	return NewScene(ids...)
}

// Resolve implements Resolver.
func (s *Scene) Resolve(id string) (Object, bool) {
	p, ok := s.elements[id]
	if !ok {
		return nil, false
	}
	return p, true
}

// Element returns the primitive with the given id.
func (s *Scene) Element(id string) (*Primitive, bool) {
	p, ok := s.elements[id]
	return p, ok
}

// IDs returns the element ids in sorted order.
func (s *Scene) IDs() []string {
	ids := make([]string, 0, len(s.elements))
	for id := range s.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
