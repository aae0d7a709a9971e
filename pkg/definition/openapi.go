package definition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExtensionKey is the schema extension carrying form specific settings that
// OpenAPI has no keyword for. On a property it accepts label, help, kind,
// message, when, validate and effects; on the component it accepts order.
const ExtensionKey = "x-formstate"

// FromOpenAPI converts the named component schema of an OpenAPI 3 document
// into a form definition. Properties become fields: strings with an enum
// become selects, booleans become bool fields and integers or numbers become
// number fields. required, minLength, maxLength, minimum, maximum and pattern
// become validation rules.
func FromOpenAPI(ctx context.Context, data []byte, component string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("definition: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("definition: load openapi document: %w", err)
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("definition: openapi document has no component schemas")
	}
	ref, ok := spec.Components.Schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("definition: component schema %q not found", component)
	}
	schema := ref.Value

	doc := &Document{
		Form: FormInfo{
			ID:          component,
			Title:       schema.Title,
			Description: schema.Description,
		},
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	ext := extension(schema.Extensions)
	for _, name := range propertyOrder(schema.Properties, stringList(ext["order"])) {
		prop := schema.Properties[name]
		if prop == nil || prop.Value == nil {
			continue
		}
		field, err := convertProperty(name, prop.Value, required[name])
		if err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, field)
	}
	doc.normalise()
	return doc, nil
}

func convertProperty(name string, schema *openapi3.Schema, required bool) (Field, error) {
	field := Field{
		Name:    name,
		Label:   schema.Title,
		Help:    schema.Description,
		Initial: schema.Default,
		Pattern: schema.Pattern,
	}

	var rules []string
	if required {
		rules = append(rules, "required")
	}

	switch primaryType(schema.Type) {
	case openapi3.TypeBoolean:
		field.Kind = KindBool
	case openapi3.TypeInteger, openapi3.TypeNumber:
		field.Kind = KindNumber
		if schema.Min != nil {
			rules = append(rules, fmt.Sprintf("gte=%g", *schema.Min))
		}
		if schema.Max != nil {
			rules = append(rules, fmt.Sprintf("lte=%g", *schema.Max))
		}
	case openapi3.TypeString, "":
		field.Kind = KindString
		if len(schema.Enum) > 0 {
			field.Kind = KindSelect
			for _, option := range schema.Enum {
				field.Options = append(field.Options, fmt.Sprint(option))
			}
		}
		if schema.MinLength > 0 {
			rules = append(rules, fmt.Sprintf("min=%d", schema.MinLength))
		}
		if schema.MaxLength != nil {
			rules = append(rules, fmt.Sprintf("max=%d", *schema.MaxLength))
		}
	default:
		return Field{}, fmt.Errorf("definition: property %q: unsupported type %q", name, primaryType(schema.Type))
	}
	field.Validate = strings.Join(rules, ",")

	ext := extension(schema.Extensions)
	if v, ok := ext["label"].(string); ok {
		field.Label = v
	}
	if v, ok := ext["help"].(string); ok {
		field.Help = v
	}
	if v, ok := ext["kind"].(string); ok {
		field.Kind = Kind(v)
	}
	if v, ok := ext["message"].(string); ok {
		field.Message = v
	}
	if v, ok := ext["when"].(string); ok {
		field.When = v
	}
	if v, ok := ext["validate"].(string); ok {
		field.Validate = v
	}
	if effects, ok := ext["effects"].(map[string]any); ok && len(effects) > 0 {
		field.Effects = make(map[string]any, len(effects))
		for target, value := range effects {
			field.Effects[target] = value
		}
	}
	return field, nil
}

func primaryType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func extension(raw map[string]any) map[string]any {
	if value, ok := raw[ExtensionKey].(map[string]any); ok {
		return value
	}
	return nil
}

// propertyOrder lists the names in preferred first, then the remaining
// properties alphabetically.
func propertyOrder(props openapi3.Schemas, preferred []string) []string {
	seen := make(map[string]bool, len(props))
	out := make([]string, 0, len(props))
	for _, name := range preferred {
		if _, ok := props[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	rest := make([]string, 0, len(props))
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
