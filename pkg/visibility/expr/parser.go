package expr

import (
	"errors"
	"fmt"
)

// parser is a recursive descent parser over scanned tokens:
//
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = "(" or ")" | identifier [ op literal ]
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	tok, ok := p.peek()
	if !ok || tok.kind != kind {
		return false
	}
	p.pos++
	return true
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokenNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, errors.New("visibility/expr: unexpected end of rule")
	}

	if tok.kind == tokenLParen {
		p.pos++
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing parenthesis")
		}
		return inner, nil
	}

	if tok.kind != tokenIdentifier {
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", tok.raw)
	}
	p.pos++

	op, ok := p.peek()
	if !ok || !isComparison(op.kind) {
		return truthyNode{identifier: tok.raw}, nil
	}
	p.pos++

	lit, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("visibility/expr: missing value after %s", opString(op.kind))
	}
	switch lit.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
	default:
		return nil, fmt.Errorf("visibility/expr: expected literal after %s, got %q", opString(op.kind), lit.raw)
	}
	p.pos++

	ordered := op.kind == tokenLt || op.kind == tokenLte || op.kind == tokenGt || op.kind == tokenGte
	if ordered && (lit.kind == tokenBool || lit.kind == tokenNull) {
		return nil, fmt.Errorf("visibility/expr: operator %s needs a number or string literal", opString(op.kind))
	}

	return compareNode{
		identifier: tok.raw,
		op:         op.kind,
		literal:    literal{kind: lit.kind, raw: lit.raw},
	}, nil
}

func isComparison(kind tokenKind) bool {
	switch kind {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		return true
	default:
		return false
	}
}
