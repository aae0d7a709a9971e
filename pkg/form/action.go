package form

import (
	"fmt"
	"log/slog"
)

// action is the closed set of state transitions. Only types in this file
// implement it.
type action interface {
	kind() string
	attrs() []slog.Attr
}

type registerAction struct{ field string }

type unregisterAction struct{ field string }

type setErrorsAction struct{ errors Errors }

type touchFieldAction struct{ field string }

type setCachedValueAction struct {
	field string
	value any
}

type unsetCachedValueAction struct{ field string }

type updateCalculatedAction struct{ values Values }

func (registerAction) kind() string         { return "register" }
func (unregisterAction) kind() string       { return "unregister" }
func (setErrorsAction) kind() string        { return "set_errors" }
func (touchFieldAction) kind() string       { return "touch_field" }
func (setCachedValueAction) kind() string   { return "set_cached_value" }
func (unsetCachedValueAction) kind() string { return "unset_cached_value" }
func (updateCalculatedAction) kind() string { return "update_calculated_values" }

func (a registerAction) attrs() []slog.Attr   { return []slog.Attr{slog.String("field", a.field)} }
func (a unregisterAction) attrs() []slog.Attr { return []slog.Attr{slog.String("field", a.field)} }
func (a setErrorsAction) attrs() []slog.Attr  { return []slog.Attr{slog.Int("errors", len(a.errors))} }
func (a touchFieldAction) attrs() []slog.Attr { return []slog.Attr{slog.String("field", a.field)} }
func (a setCachedValueAction) attrs() []slog.Attr {
	return []slog.Attr{slog.String("field", a.field), slog.Any("value", a.value)}
}
func (a unsetCachedValueAction) attrs() []slog.Attr {
	return []slog.Attr{slog.String("field", a.field)}
}
func (a updateCalculatedAction) attrs() []slog.Attr {
	return []slog.Attr{slog.Int("values", len(a.values))}
}

// state is everything a controller mutates in response to actions.
type state struct {
	registry
	store
}

func newState(calculated Values) state {
	return state{
		registry: newRegistry(),
		store:    newStore(calculated),
	}
}

// reduce applies a to the state and reports whether anything changed.
func (s *state) reduce(a action) bool {
	switch a := a.(type) {
	case registerAction:
		return s.register(a.field)
	case unregisterAction:
		removed := s.unregister(a.field)
		if _, ok := s.errors[a.field]; ok {
			delete(s.errors, a.field)
			removed = true
		}
		return removed
	case setErrorsAction:
		s.errors = a.errors
		return true
	case touchFieldAction:
		return s.touch(a.field)
	case setCachedValueAction:
		s.setCached(a.field, a.value)
		return true
	case unsetCachedValueAction:
		return s.unsetCached(a.field)
	case updateCalculatedAction:
		s.calculated = a.values
		return true
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownAction, a))
	}
}
