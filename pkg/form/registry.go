package form

// registry tracks mounted and touched fields. Both sets only grow through
// explicit transitions; touched never shrinks.
type registry struct {
	visible map[string]struct{}
	touched map[string]struct{}
}

func newRegistry() registry {
	return registry{
		visible: make(map[string]struct{}),
		touched: make(map[string]struct{}),
	}
}

func (r *registry) register(field string) bool {
	if _, ok := r.visible[field]; ok {
		return false
	}
	r.visible[field] = struct{}{}
	return true
}

func (r *registry) unregister(field string) bool {
	if _, ok := r.visible[field]; !ok {
		return false
	}
	delete(r.visible, field)
	return true
}

func (r *registry) touch(field string) bool {
	if _, ok := r.touched[field]; ok {
		return false
	}
	r.touched[field] = struct{}{}
	return true
}

func (r *registry) isVisible(field string) bool {
	_, ok := r.visible[field]
	return ok
}

func (r *registry) isTouched(field string) bool {
	_, ok := r.touched[field]
	return ok
}

func (r *registry) visibleFields() []string {
	return sortedKeys(r.visible)
}

func setCopy(src map[string]struct{}) map[string]bool {
	out := make(map[string]bool, len(src))
	for key := range src {
		out[key] = true
	}
	return out
}
