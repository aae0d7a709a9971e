package form

// store holds the layers the controller owns: cached edits, the last
// calculated values and the current error map. Committed values stay with the
// Source.
type store struct {
	cached     Values
	calculated Values
	errors     Errors
}

func newStore(calculated Values) store {
	return store{
		cached:     make(Values),
		calculated: calculated,
		errors:     make(Errors),
	}
}

func (s *store) setCached(field string, value any) {
	s.cached[field] = value
}

func (s *store) unsetCached(field string) bool {
	if _, ok := s.cached[field]; !ok {
		return false
	}
	delete(s.cached, field)
	return true
}

func (s *store) hasCached(field string) bool {
	_, ok := s.cached[field]
	return ok
}

// effective resolves the display value of field: cached first, committed
// otherwise.
func (s *store) effective(field string, committed Values) any {
	if value, ok := s.cached[field]; ok {
		return value
	}
	return committed[field]
}

// effectiveValues overlays cached values on committed ones.
func (s *store) effectiveValues(committed Values) Values {
	return committed.Overlay(s.cached)
}

// merged is the view validators receive. Calculated values are applied last
// and win over both committed and cached entries of the same name.
func (s *store) merged(committed Values) Values {
	return committed.Overlay(s.cached, s.calculated)
}
