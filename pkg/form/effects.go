package form

import "fmt"

type effectWrite struct {
	field string
	value any
}

// collectEffects evaluates every effect declared by field against value and
// returns the dependent writes in field-name order. Nothing is applied when
// one of the effect functions fails.
func collectEffects[X any](meta Metadata[X], field string, value any) ([]effectWrite, error) {
	effects := meta[field].Effects
	if len(effects) == 0 {
		return nil, nil
	}
	writes := make([]effectWrite, 0, len(effects))
	for _, target := range sortedKeys(effects) {
		fn := effects[target]
		if fn == nil {
			continue
		}
		derived, err := fn(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s -> %s: %w", ErrEffectFailed, field, target, err)
		}
		writes = append(writes, effectWrite{field: target, value: derived})
	}
	return writes, nil
}

// cascadeLocked applies the effects of a primary write as one batch of
// secondary writes. Secondary writes go through commitLocked, which has no
// path back into the cascade, so targets never expand their own effects.
func (c *Controller[X]) cascadeLocked(field string, value any) error {
	writes, err := collectEffects(c.meta, field, value)
	if err != nil {
		return err
	}
	for _, w := range writes {
		if len(c.meta[w.field].Effects) > 0 {
			c.logger.Debug("form: effects of cascaded field skipped",
				"controller", c.id,
				"source", field,
				"field", w.field,
			)
		}
		c.commitLocked(w.field, w.value)
	}
	return nil
}
