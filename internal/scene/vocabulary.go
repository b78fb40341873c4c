// Package scene holds the read-only configuration the command dispatcher
// works against: the vocabulary that maps recognized entity values onto
// canonical names, and the registry of named scene objects.
package scene

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// All is the canonical token addressing every registered object.
const All = "all"

// Action is a canonical dispatcher action.
type Action string

const (
	ActionChange Action = "change"
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

var actions = map[Action]bool{ActionChange: true, ActionAdd: true, ActionRemove: true}

// vocabularyFile is the YAML layout of a vocabulary.
type vocabularyFile struct {
	Language     string            `yaml:"language"`
	Objects      map[string]string `yaml:"objects"`
	Colors       map[string]string `yaml:"colors"`
	Translations map[string]string `yaml:"translations"`
}

// Vocabulary translates source-language tokens into canonical object, color
// and action names. It is immutable once loaded and safe for concurrent use.
type Vocabulary struct {
	lang         language.Tag
	objects      map[string]string
	colors       map[string]string
	translations map[string]string
}

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

// LoadVocabulary reads a vocabulary from path, or the embedded default when
// path is empty.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes and validates a YAML vocabulary. Every translation
// must target a known object, color, action, or the all token.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding vocabulary: %w", err)
	}
	if len(f.Objects) == 0 {
		return nil, fmt.Errorf("vocabulary defines no objects")
	}

	lang := language.Und
	if f.Language != "" {
		tag, err := language.Parse(f.Language)
		if err != nil {
			return nil, fmt.Errorf("vocabulary language %q: %w", f.Language, err)
		}
		lang = tag
	}

	v := &Vocabulary{
		lang:         lang,
		objects:      make(map[string]string, len(f.Objects)),
		colors:       make(map[string]string, len(f.Colors)),
		translations: make(map[string]string, len(f.Translations)),
	}
	for name, id := range f.Objects {
		key := v.normalize(name)
		if key == All {
			return nil, fmt.Errorf("object name %q is reserved", name)
		}
		v.objects[key] = id
	}
	for name, value := range f.Colors {
		v.colors[v.normalize(name)] = value
	}
	for src, canonical := range f.Translations {
		canonical = v.normalize(canonical)
		if !v.isCanonical(canonical) {
			return nil, fmt.Errorf("translation %q targets unknown token %q", src, canonical)
		}
		v.translations[v.normalize(src)] = canonical
	}
	return v, nil
}

func (v *Vocabulary) isCanonical(token string) bool {
	if token == All || actions[Action(token)] {
		return true
	}
	_, isObject := v.objects[token]
	_, isColor := v.colors[token]
	return isObject || isColor
}

// normalize folds a raw token to NFC lower case in the vocabulary language,
// so "Sphère" and a decomposed "sphère" match the same entry.
func (v *Vocabulary) normalize(raw string) string {
	s := norm.NFC.String(strings.TrimSpace(raw))
	return cases.Lower(v.lang).String(s)
}

// canonical translates a raw token; a token that is not a source token is
// returned normalized, so canonical input passes through.
func (v *Vocabulary) canonical(raw string) string {
	n := v.normalize(raw)
	if c, ok := v.translations[n]; ok {
		return c
	}
	return n
}

// Language returns the source-vocabulary language.
func (v *Vocabulary) Language() language.Tag { return v.lang }

// Object resolves a raw object token. isAll is true for the all token; ok is
// false when the token names no known object.
func (v *Vocabulary) Object(raw string) (name string, isAll bool, ok bool) {
	c := v.canonical(raw)
	if c == All {
		return All, true, true
	}
	if _, known := v.objects[c]; known {
		return c, false, true
	}
	return c, false, false
}

// Color resolves a raw color token to its render value.
func (v *Vocabulary) Color(raw string) (string, bool) {
	value, ok := v.colors[v.canonical(raw)]
	return value, ok
}

// Action resolves a raw action token. ok is false for unknown actions.
func (v *Vocabulary) Action(raw string) (Action, bool) {
	a := Action(v.canonical(raw))
	return a, actions[a]
}

// Objects returns the canonical object names and their element ids.
func (v *Vocabulary) Objects() map[string]string {
	out := make(map[string]string, len(v.objects))
	for name, id := range v.objects {
		out[name] = id
	}
	return out
}

// ObjectNames returns the canonical object names in sorted order.
func (v *Vocabulary) ObjectNames() []string {
	names := make([]string, 0, len(v.objects))
	for name := range v.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
