package form

// validateVisible runs every visible field's validator and returns a fresh
// error map. Fields without a validator or with an empty result are absent.
func validateVisible[X any](meta Metadata[X], s *state, committed Values, extra X) Errors {
	errs := make(Errors)
	merged := s.merged(committed)
	for _, field := range s.visibleFields() {
		validate := meta[field].Validate
		if validate == nil {
			continue
		}
		if message := validate(s.effective(field, committed), merged, extra); message != "" {
			errs[field] = message
		}
	}
	return errs
}

// revalidateLocked replaces the error map with a full pass over the visible
// set. trigger only feeds the log.
func (c *Controller[X]) revalidateLocked(trigger string) {
	c.refreshCalculatedLocked()
	errs := validateVisible(c.meta, &c.state, c.source.Values(), c.extra)
	c.dispatch(setErrorsAction{errors: errs})
	c.dirty = false
	c.passes++
	c.logger.Debug("form: validation pass",
		"controller", c.id,
		"trigger", trigger,
		"visible", len(c.state.visible),
		"errors", len(errs),
	)
}
