package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

// scanner splits a rule into tokens.
type scanner struct {
	input  string
	pos    int
	tokens []token
}

func scan(input string) ([]token, error) {
	s := &scanner{input: input}
	for s.pos < len(s.input) {
		if err := s.next(); err != nil {
			return nil, err
		}
	}
	return s.tokens, nil
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.input) {
		return 0
	}
	return s.input[s.pos]
}

func (s *scanner) emit(kind tokenKind, raw string) {
	s.tokens = append(s.tokens, token{kind: kind, raw: raw})
}

// pair consumes a one or two character operator: double is emitted when the
// second character follows, single otherwise. A negative single kind means
// the lone character is invalid.
func (s *scanner) pair(second byte, double, single tokenKind, hint string) error {
	first := s.input[s.pos]
	s.pos++
	if s.peek() == second {
		s.pos++
		s.emit(double, string([]byte{first, second}))
		return nil
	}
	if single < 0 {
		return fmt.Errorf("visibility/expr: unexpected %q; use %q", first, hint)
	}
	s.emit(single, string(first))
	return nil
}

func (s *scanner) next() error {
	switch ch := s.peek(); ch {
	case ' ', '\t', '\n', '\r':
		s.pos++
	case '(':
		s.pos++
		s.emit(tokenLParen, "(")
	case ')':
		s.pos++
		s.emit(tokenRParen, ")")
	case '!':
		return s.pair('=', tokenNeq, tokenNot, "")
	case '=':
		return s.pair('=', tokenEq, -1, "==")
	case '&':
		return s.pair('&', tokenAnd, -1, "&&")
	case '|':
		return s.pair('|', tokenOr, -1, "||")
	case '<':
		return s.pair('=', tokenLte, tokenLt, "")
	case '>':
		return s.pair('=', tokenGte, tokenGt, "")
	case '"', '\'':
		return s.quoted(ch)
	default:
		s.word()
	}
	return nil
}

func (s *scanner) quoted(quote byte) error {
	start := s.pos
	s.pos++
	escaped := false
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		s.pos++
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			raw := s.input[start:s.pos]
			if quote == '\'' {
				inner := strings.ReplaceAll(raw[1:len(raw)-1], `\'`, `'`)
				raw = `"` + strings.ReplaceAll(inner, `"`, `\"`) + `"`
			}
			value, err := strconv.Unquote(raw)
			if err != nil {
				return fmt.Errorf("visibility/expr: invalid string literal: %w", err)
			}
			s.emit(tokenString, value)
			return nil
		}
	}
	return errors.New("visibility/expr: unterminated string literal")
}

func (s *scanner) word() {
	start := s.pos
	for s.pos < len(s.input) && !strings.ContainsRune(" \t\n\r()!=&|<>", rune(s.input[s.pos])) {
		s.pos++
	}
	raw := s.input[start:s.pos]
	switch strings.ToLower(raw) {
	case "true", "false":
		s.emit(tokenBool, strings.ToLower(raw))
	case "null", "nil":
		s.emit(tokenNull, "null")
	default:
		if looksLikeNumber(raw) {
			s.emit(tokenNumber, raw)
		} else {
			s.emit(tokenIdentifier, raw)
		}
	}
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}
