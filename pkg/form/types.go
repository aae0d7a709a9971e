package form

import (
	"context"
	"sort"
)

// Values maps field names to field values.
type Values map[string]any

// Clone returns a shallow copy. Nil stays nil.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Overlay returns a copy of v with every entry of layers applied in order,
// later layers winning.
func (v Values) Overlay(layers ...Values) Values {
	size := len(v)
	for _, layer := range layers {
		size += len(layer)
	}
	out := make(Values, size)
	for key, value := range v {
		out[key] = value
	}
	for _, layer := range layers {
		for key, value := range layer {
			out[key] = value
		}
	}
	return out
}

// Errors maps field names to validation messages. Fields without an error are
// absent.
type Errors map[string]string

// Clone returns a copy of the error map.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for key, value := range e {
		out[key] = value
	}
	return out
}

// ValidateFunc inspects a field's effective value. values holds committed
// values overlaid by cached values and then by calculated values; extra is the
// caller's context. A non-empty return is the error message.
type ValidateFunc[X any] func(value any, values Values, extra X) string

// EffectFunc derives a dependent field's value from the value just written to
// the field that declares the effect.
type EffectFunc func(value any) (any, error)

// CalculateFunc derives calculated values from committed values and extra
// context. It must be pure.
type CalculateFunc[X any] func(values Values, extra X) Values

// SubmitFunc receives the fully committed values from ProcessSubmit.
type SubmitFunc func(ctx context.Context, values Values) error

// FieldMeta is the static configuration of one field.
type FieldMeta[X any] struct {
	Validate ValidateFunc[X]
	// Effects maps a dependent field name to the function producing its value
	// whenever this field is written by a primary write.
	Effects map[string]EffectFunc
}

// Metadata is the per-field configuration table of a form.
type Metadata[X any] map[string]FieldMeta[X]

// Check adapts a predicate into a ValidateFunc reporting message when the
// predicate fails.
func Check[X any](pred func(value any) bool, message string) ValidateFunc[X] {
	return func(value any, _ Values, _ X) string {
		if pred == nil || pred(value) {
			return ""
		}
		return message
	}
}

// Const returns an effect that always writes value.
func Const(value any) EffectFunc {
	return func(any) (any, error) {
		return value, nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
