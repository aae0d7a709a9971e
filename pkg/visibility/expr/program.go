package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Program is a compiled rule. It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   node
}

// Compile parses rule. An empty rule compiles to a program that always
// matches.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	program := &Program{source: trimmed}
	if trimmed == "" {
		return program, nil
	}
	tokens, err := scan(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return program, nil
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", p.tokens[p.pos].raw)
	}
	program.root = root
	return program, nil
}

// String returns the rule the program was compiled from.
func (p *Program) String() string {
	return p.source
}

// Match evaluates the program against ctx.
func (p *Program) Match(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

// Identifiers lists the value paths the rule reads, sorted and without
// duplicates. Paths under "extras." are included with their prefix.
func (p *Program) Identifiers() []string {
	if p == nil || p.root == nil {
		return nil
	}
	seen := make(map[string]struct{})
	p.root.collect(seen)
	out := make([]string, 0, len(seen))
	for ident := range seen {
		out = append(out, ident)
	}
	sort.Strings(out)
	return out
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
	collect(seen map[string]struct{})
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

func (n orNode) collect(seen map[string]struct{}) {
	n.left.collect(seen)
	n.right.collect(seen)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

func (n andNode) collect(seen map[string]struct{}) {
	n.left.collect(seen)
	n.right.collect(seen)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok, err
}

func (n notNode) collect(seen map[string]struct{}) {
	n.inner.collect(seen)
}

type truthyNode struct{ identifier string }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	return ok && truthy(value), nil
}

func (n truthyNode) collect(seen map[string]struct{}) {
	seen[n.identifier] = struct{}{}
}

type literal struct {
	kind tokenKind // tokenString, tokenNumber, tokenBool or tokenNull
	raw  string
}

type compareNode struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n compareNode) collect(seen map[string]struct{}) {
	seen[n.identifier] = struct{}{}
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)

	switch n.literal.kind {
	case tokenNull:
		return n.equality(value == nil, true)
	case tokenBool:
		got, _ := coerceBool(value)
		return n.equality(got, n.literal.raw == "true")
	case tokenString:
		got := coerceString(value)
		if n.ordered() {
			return n.order(strings.Compare(got, n.literal.raw)), nil
		}
		return n.equality(got, n.literal.raw)
	case tokenNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("visibility/expr: invalid number literal %q", n.literal.raw)
		}
		got, ok := coerceNumber(value)
		switch {
		case !ok:
			return n.op == tokenNeq, nil
		case got < want:
			return n.order(-1), nil
		case got > want:
			return n.order(1), nil
		default:
			return n.order(0), nil
		}
	default:
		return false, errors.New("visibility/expr: unsupported literal")
	}
}

func (n compareNode) ordered() bool {
	return n.op == tokenLt || n.op == tokenLte || n.op == tokenGt || n.op == tokenGte
}

func (n compareNode) order(cmp int) bool {
	switch n.op {
	case tokenEq:
		return cmp == 0
	case tokenNeq:
		return cmp != 0
	case tokenLt:
		return cmp < 0
	case tokenLte:
		return cmp <= 0
	case tokenGt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// equality handles literals that only support == and !=. got and want are
// always bools or strings.
func (n compareNode) equality(got, want any) (bool, error) {
	switch n.op {
	case tokenEq:
		return got == want, nil
	case tokenNeq:
		return got != want, nil
	default:
		return false, fmt.Errorf("visibility/expr: operator %s needs a number or string literal", opString(n.op))
	}
}

func opString(op tokenKind) string {
	switch op {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	default:
		return "?"
	}
}
