package visibility

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Rule pairs a field with the condition under which it is mounted. An empty
// When keeps the field mounted.
type Rule struct {
	Field string
	When  string
}

// Rules lists the mountable fields of a form in layout order.
type Rules []Rule

// Fields returns the field names in order.
func (r Rules) Fields() []string {
	out := make([]string, 0, len(r))
	for _, rule := range r {
		out = append(out, rule.Field)
	}
	return out
}

// Changes reports what a Sync call mounted and unmounted.
type Changes struct {
	Registered   []string
	Unregistered []string
}

// Empty reports whether Sync left the visible set untouched.
func (c Changes) Empty() bool {
	return len(c.Registered) == 0 && len(c.Unregistered) == 0
}

// ContextFrom builds the evaluation context from a controller snapshot.
// Rules see committed values, not cached edits, so a field does not appear or
// vanish while another one is still being typed into.
func ContextFrom[X any](snapshot form.Snapshot[X], extras map[string]any) Context {
	return Context{
		Values: snapshot.Committed.Overlay(snapshot.Calculated),
		Extras: extras,
	}
}

// Sync evaluates every rule against the controller's current state and
// registers or unregisters fields so the visible set matches. A nil evaluator
// mounts everything. Evaluation errors abort before any field changes.
func Sync[X any](ctrl *form.Controller[X], rules Rules, evaluator Evaluator, extras map[string]any) (Changes, error) {
	if evaluator == nil {
		evaluator = Always
	}
	snapshot := ctrl.Snapshot()
	ctx := ContextFrom(snapshot, extras)

	want := make(map[string]bool, len(rules))
	for _, rule := range rules {
		field := strings.TrimSpace(rule.Field)
		if field == "" {
			continue
		}
		mounted := true
		if strings.TrimSpace(rule.When) != "" {
			ok, err := evaluator.Eval(field, rule.When, ctx)
			if err != nil {
				return Changes{}, fmt.Errorf("visibility: field %q: %w", field, err)
			}
			mounted = ok
		}
		want[field] = want[field] || mounted
	}

	var changes Changes
	for _, rule := range rules {
		field := strings.TrimSpace(rule.Field)
		mounted, known := want[field]
		if !known {
			continue
		}
		delete(want, field)
		switch {
		case mounted && !snapshot.Visible[field]:
			ctrl.Register(field)
			changes.Registered = append(changes.Registered, field)
		case !mounted && snapshot.Visible[field]:
			ctrl.Unregister(field)
			changes.Unregistered = append(changes.Unregistered, field)
		}
	}
	return changes, nil
}
