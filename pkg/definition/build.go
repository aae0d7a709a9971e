package definition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/validators"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Metadata builds the controller metadata: one validator per field from its
// tag, pattern and options, plus constant effects. Call Validate first; a
// pattern that does not compile is reported here too.
func (d *Document) Metadata() (form.Metadata[Extras], error) {
	meta := make(form.Metadata[Extras], len(d.Fields))
	for _, field := range d.Fields {
		var checks []form.ValidateFunc[Extras]
		if tag := strings.TrimSpace(field.Validate); tag != "" {
			fn := validators.Tag[Extras](tag, field.Message)
			if field.Kind == KindNumber && !hasRule(tag, "required") {
				fn = validators.Optional(fn)
			}
			checks = append(checks, fn)
		}
		if field.Pattern != "" {
			fn, err := validators.Pattern[Extras](field.Pattern, field.Message)
			if err != nil {
				return nil, fmt.Errorf("definition: field %q: %w", field.Name, err)
			}
			checks = append(checks, validators.Optional(fn))
		}
		if field.Kind == KindSelect && len(field.Options) > 0 {
			checks = append(checks, validators.Optional(validators.OneOf[Extras](field.Message, field.Options...)))
		}

		entry := form.FieldMeta[Extras]{}
		switch len(checks) {
		case 0:
		case 1:
			entry.Validate = checks[0]
		default:
			entry.Validate = validators.All(checks...)
		}
		if len(field.Effects) > 0 {
			entry.Effects = make(map[string]form.EffectFunc, len(field.Effects))
			for target, value := range field.Effects {
				entry.Effects[target] = form.Const(value)
			}
		}
		meta[field.Name] = entry
	}
	return meta, nil
}

// InitialValues returns the committed values a fresh form starts from.
// Fields without an initial value get the zero value of their kind; numbers
// start empty.
func (d *Document) InitialValues() form.Values {
	values := make(form.Values, len(d.Fields))
	for _, field := range d.Fields {
		if field.Initial != nil {
			values[field.Name] = field.Initial
			continue
		}
		switch field.Kind {
		case KindBool:
			values[field.Name] = false
		case KindNumber:
			values[field.Name] = nil
		default:
			values[field.Name] = ""
		}
	}
	return values
}

// Rules returns the visibility rules in layout order.
func (d *Document) Rules() visibility.Rules {
	rules := make(visibility.Rules, 0, len(d.Fields))
	for _, field := range d.Fields {
		rules = append(rules, visibility.Rule{Field: field.Name, When: field.When})
	}
	return rules
}

// Controller validates the document and builds a controller over source. A
// nil source starts from InitialValues. No field is registered yet; use
// visibility.Sync with Rules to mount them.
func (d *Document) Controller(source form.Source, options ...form.Option) (*form.Controller[Extras], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	meta, err := d.Metadata()
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = form.NewMapSource(d.InitialValues())
	}
	return form.New(source, meta, options...), nil
}

// ParseValue converts raw text input into a value of the field's kind. Empty
// input maps to the kind's empty value.
func (f Field) ParseValue(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	switch f.Kind {
	case KindBool:
		if trimmed == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fmt.Errorf("definition: field %q: %q is not a boolean", f.Name, raw)
		}
		return v, nil
	case KindNumber:
		if trimmed == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("definition: field %q: %q is not a number", f.Name, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// CoerceValue converts a decoded JSON or YAML value into the field's kind.
// Strings go through ParseValue.
func (f Field) CoerceValue(value any) (any, error) {
	if s, ok := value.(string); ok {
		return f.ParseValue(s)
	}
	switch f.Kind {
	case KindNumber:
		if value == nil {
			return nil, nil
		}
		if n, ok := toNumber(value); ok {
			return n, nil
		}
		return nil, fmt.Errorf("definition: field %q: %v is not a number", f.Name, value)
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("definition: field %q: %v is not a boolean", f.Name, value)
	default:
		if value == nil {
			return "", nil
		}
		return fmt.Sprint(value), nil
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func hasRule(tag, name string) bool {
	for _, rule := range strings.Split(tag, ",") {
		key, _, _ := strings.Cut(strings.TrimSpace(rule), "=")
		if key == name {
			return true
		}
	}
	return false
}

func sortedTargets(effects map[string]any) []string {
	out := make([]string, 0, len(effects))
	for target := range effects {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}
