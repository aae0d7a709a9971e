// Package visibility decides which fields a presentation layer mounts. Each
// field may carry a rule string evaluated against the committed and
// calculated values of a form; Sync registers the fields whose rule holds on
// the controller and unregisters the rest.
package visibility

// Evaluator determines whether a field should be mounted based on a rule
// string and the current form context.
type Evaluator interface {
	Eval(field, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds committed values
// overlaid by calculated values; Extras carries caller context such as user
// roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(field, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(field, rule string, ctx Context) (bool, error) {
	return fn(field, rule, ctx)
}

// Always mounts every field regardless of its rule.
var Always Evaluator = EvaluatorFunc(func(string, string, Context) (bool, error) {
	return true, nil
})
