// Package expr implements a small rule language for field visibility.
//
// Supported forms:
//   - truthiness: `vipFlag`, `!vipFlag`
//   - comparisons: `tier == "gold"`, `age >= 18`, `note != null`
//   - composition: `a && (b || !c)`
//
// Identifiers read form values with dotted path traversal. The `extras.`
// prefix reads caller supplied context instead.
package expr

import (
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Evaluator implements visibility.Evaluator and caches compiled rules.
type Evaluator struct {
	programs sync.Map // rule string -> *Program
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New returns an Evaluator with an empty program cache.
func New() *Evaluator { return &Evaluator{} }

// Eval compiles rule on first use and matches it against ctx. The field name
// is unused; rules are self contained.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	program, err := e.Program(rule)
	if err != nil {
		return false, err
	}
	return program.Match(ctx)
}

// Program returns the compiled form of rule, compiling it when unseen.
func (e *Evaluator) Program(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	if cached, ok := e.programs.Load(key); ok {
		return cached.(*Program), nil
	}
	program, err := Compile(key)
	if err != nil {
		return nil, err
	}
	actual, _ := e.programs.LoadOrStore(key, program)
	return actual.(*Program), nil
}
