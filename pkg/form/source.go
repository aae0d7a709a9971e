package form

import "sync"

// Source owns the committed values of a form. The controller reads them
// through Values and requests every write through SetValue; it never mutates
// the returned map.
type Source interface {
	Values() Values
	SetValue(field string, value any)
}

// SourceFuncs adapts a getter/setter pair into a Source.
type SourceFuncs struct {
	Get func() Values
	Set func(field string, value any)
}

// Values delegates to Get.
func (s SourceFuncs) Values() Values {
	if s.Get == nil {
		return nil
	}
	return s.Get()
}

// SetValue delegates to Set.
func (s SourceFuncs) SetValue(field string, value any) {
	if s.Set != nil {
		s.Set(field, value)
	}
}

// MapSource is an in-memory Source for hosts that do not keep committed
// values elsewhere.
type MapSource struct {
	mu     sync.RWMutex
	values Values
}

// NewMapSource seeds the source with a copy of initial.
func NewMapSource(initial Values) *MapSource {
	values := initial.Clone()
	if values == nil {
		values = make(Values)
	}
	return &MapSource{values: values}
}

// Values returns a copy of the committed values.
func (s *MapSource) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// SetValue stores value under field.
func (s *MapSource) SetValue(field string, value any) {
	s.mu.Lock()
	s.values[field] = value
	s.mu.Unlock()
}
