// Package dispatch turns recognized assistant responses into scene mutations.
//
// The dispatcher extracts the object, color and action entities from one
// response, translates them through the vocabulary, and recolors, shows or
// hides registered scene objects. It is stateless: every response is handled
// independently. It never returns an error; missing or unknown entities are
// reported as diagnostics and logged.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/scenerelay/internal/message"
	"github.com/nadzzz/scenerelay/internal/scene"
)

// Entity categories the dispatcher interprets.
const (
	CategoryObject = "object"
	CategoryColor  = "color"
	CategoryAction = "action"
)

// Diagnostic codes.
const (
	CodeNoAction            = "no_action"
	CodeMissingObject       = "missing_object"
	CodeMissingColor        = "missing_color"
	CodeUnknownObject       = "unknown_object"
	CodeUnknownColor        = "unknown_color"
	CodeUnimplementedAction = "unimplemented_action"
	CodeDoubleMutation      = "double_mutation"
)

// Mutation is one attribute change applied to a registered object.
type Mutation struct {
	Object    string `json:"object"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// Diagnostic describes why a response produced fewer mutations than it
// might have, or flags a questionable one.
type Diagnostic struct {
	Code    string     `json:"code"`
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
}

// Report is the outcome of handling one response.
type Report struct {
	Mutations   []Mutation   `json:"mutations"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Has reports whether a diagnostic with code was produced.
func (r *Report) Has(code string) bool {
	for _, d := range r.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// target is a resolved object entity.
type target struct {
	name string
	all  bool
	obj  scene.Object // nil when the name is not registered
}

// entities is the per-response entity map. Later entities of the same
// category overwrite earlier ones.
type entities struct {
	object    *target
	color     string
	hasColor  bool
	action    string
	hasAction bool
	other     map[string]string
}

// Dispatcher applies recognized commands to a fixed scene registry.
type Dispatcher struct {
	vocab       *scene.Vocabulary
	registry    *scene.Registry
	implicitAdd bool
	logger      *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithImplicitAdd controls whether an object and a color recognized together
// trigger add+recolor regardless of the declared action. Enabled by default.
func WithImplicitAdd(enabled bool) Option {
	return func(d *Dispatcher) { d.implicitAdd = enabled }
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher over a read-only vocabulary and registry.
func New(vocab *scene.Vocabulary, registry *scene.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		vocab:       vocab,
		registry:    registry,
		implicitAdd: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one assistant response. A nil response is a no-op.
func (d *Dispatcher) Handle(resp *message.Response) Report {
	var rep Report
	if resp == nil {
		return rep
	}

	ents := d.extract(resp.Entities, &rep)
	d.logger.Debug("entities extracted",
		"object", ents.objectName(), "color", ents.color, "action", ents.action, "other", len(ents.other))

	action, known := d.vocab.Action(ents.action)

	// An object and a color recognized together add and recolor the object
	// even when an action is also present. Unknown actions suppress it.
	implicit := false
	if d.implicitAdd && ents.object != nil && ents.hasColor && (!ents.hasAction || known) {
		d.add(ents, &rep)
		implicit = true
	}

	switch {
	case !ents.hasAction:
		d.report(&rep, CodeNoAction, slog.LevelInfo, "No action seen")
	case !known:
		d.report(&rep, CodeUnimplementedAction, slog.LevelError,
			fmt.Sprintf("Action %s not implemented yet", ents.action))
	case action == scene.ActionChange:
		d.change(ents, &rep)
	case action == scene.ActionAdd:
		d.add(ents, &rep)
	case action == scene.ActionRemove:
		d.remove(ents, &rep)
	}

	if implicit && ents.hasAction && known {
		d.report(&rep, CodeDoubleMutation, slog.LevelWarn,
			fmt.Sprintf("object and color present: add applied in addition to action %s", action))
	}
	return rep
}

func (d *Dispatcher) extract(list []message.Entity, rep *Report) entities {
	ents := entities{other: make(map[string]string)}
	for _, e := range list {
		switch e.Entity {
		case CategoryObject:
			ents.object = d.resolveObject(e.Value, rep)
		case CategoryColor:
			ents.color, ents.hasColor = d.vocab.Color(e.Value)
			if !ents.hasColor {
				d.report(rep, CodeUnknownColor, slog.LevelWarn, fmt.Sprintf("unknown color %q", e.Value))
			}
		case CategoryAction:
			ents.action, ents.hasAction = e.Value, true
		default:
			ents.other[e.Entity] = e.Value
		}
	}
	return ents
}

// resolveObject returns nil when the value names no registered object.
func (d *Dispatcher) resolveObject(raw string, rep *Report) *target {
	name, isAll, ok := d.vocab.Object(raw)
	if isAll {
		return &target{name: scene.All, all: true}
	}
	if ok {
		if obj, registered := d.registry.Get(name); registered {
			return &target{name: name, obj: obj}
		}
	}
	d.report(rep, CodeUnknownObject, slog.LevelWarn, fmt.Sprintf("unknown object %q", raw))
	return nil
}

func (d *Dispatcher) change(ents entities, rep *Report) {
	if ents.object == nil || !ents.hasColor {
		code := CodeMissingObject
		if ents.object != nil {
			code = CodeMissingColor
		}
		d.report(rep, code, slog.LevelError, "User didn't provide an object and a color for a color change.")
		return
	}
	d.apply(ents.object, rep, func(name string, obj scene.Object) {
		d.set(rep, name, obj, scene.AttrColor, ents.color)
	})
}

func (d *Dispatcher) add(ents entities, rep *Report) {
	if ents.object == nil {
		d.report(rep, CodeMissingObject, slog.LevelError, "User didn't provide an object for an object addition.")
		return
	}
	d.apply(ents.object, rep, func(name string, obj scene.Object) {
		if ents.hasColor {
			d.set(rep, name, obj, scene.AttrColor, ents.color)
		}
		d.set(rep, name, obj, scene.AttrVisible, true)
	})
}

func (d *Dispatcher) remove(ents entities, rep *Report) {
	if ents.object == nil {
		d.report(rep, CodeMissingObject, slog.LevelError, "User didn't provide an object for an object removal.")
		return
	}
	d.apply(ents.object, rep, func(name string, obj scene.Object) {
		d.set(rep, name, obj, scene.AttrVisible, false)
	})
}

// apply runs fn on every registered object for the all target, otherwise on
// the single resolved object. A target without an object is skipped.
func (d *Dispatcher) apply(t *target, rep *Report, fn func(name string, obj scene.Object)) {
	if t.all {
		for _, name := range d.registry.Names() {
			obj, _ := d.registry.Get(name)
			fn(name, obj)
		}
		return
	}
	if t.obj == nil {
		d.report(rep, CodeUnknownObject, slog.LevelWarn, fmt.Sprintf("object %q has no scene element", t.name))
		return
	}
	fn(t.name, t.obj)
}

func (d *Dispatcher) set(rep *Report, name string, obj scene.Object, attr string, value any) {
	obj.SetAttribute(attr, value)
	rep.Mutations = append(rep.Mutations, Mutation{Object: name, Attribute: attr, Value: value})
	d.logger.Debug("scene mutated", "object", name, "attribute", attr, "value", value)
}

func (d *Dispatcher) report(rep *Report, code string, level slog.Level, msg string) {
	rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Code: code, Level: level, Message: msg})
	d.logger.Log(context.Background(), level, msg, "code", code)
}

func (e entities) objectName() string {
	if e.object == nil {
		return ""
	}
	return e.object.name
}
