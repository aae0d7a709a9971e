// Package definition loads declarative form documents and turns them into
// the metadata, initial values and visibility rules a form controller runs
// on. Documents are YAML or JSON; OpenAPI component schemas can be converted
// with FromOpenAPI.
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the input type of a field.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindSelect Kind = "select"
)

// Extras is the extra values type of controllers built from documents. It is
// also the context visibility rules see under the "extras." prefix.
type Extras = map[string]any

// FormInfo describes the form as a whole.
type FormInfo struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Field describes one input.
type Field struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	Help    string   `json:"help,omitempty" yaml:"help,omitempty"`
	Initial any      `json:"initial,omitempty" yaml:"initial,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	// Validate is a go-playground/validator tag such as "required,min=3".
	Validate string `json:"validate,omitempty" yaml:"validate,omitempty"`
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Message replaces the generated validation message.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// When is a visibility expression; empty keeps the field mounted.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
	// Effects maps a dependent field to the constant written into it whenever
	// this field is set.
	Effects map[string]any `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// DisplayLabel returns Label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// Document is a parsed form definition. Field order is layout order.
type Document struct {
	Form   FormInfo `json:"form" yaml:"form"`
	Fields []Field  `json:"fields" yaml:"fields"`
}

// Field returns the named field.
func (d *Document) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Names returns field names in layout order.
func (d *Document) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		out = append(out, field.Name)
	}
	return out
}

// Load reads and parses the document at path. The result is not validated.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a JSON or YAML document. source names the input in errors.
func Parse(data []byte, source string) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("definition: %s is empty", source)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = Document{}
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, fmt.Errorf("definition: parse %s: %w", source, yerr)
		}
	}
	doc.normalise()
	return &doc, nil
}

func (d *Document) normalise() {
	d.Form.ID = strings.TrimSpace(d.Form.ID)
	for i := range d.Fields {
		field := &d.Fields[i]
		field.Name = strings.TrimSpace(field.Name)
		field.Kind = Kind(strings.ToLower(strings.TrimSpace(string(field.Kind))))
		if field.Kind == "" {
			field.Kind = KindString
			if len(field.Options) > 0 {
				field.Kind = KindSelect
			}
		}
		if field.Kind == KindNumber {
			if n, ok := toNumber(field.Initial); ok {
				field.Initial = n
			}
		}
	}
}
