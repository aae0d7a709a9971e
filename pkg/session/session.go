// Package session fills a form interactively. Each mounted field is prompted
// in layout order; answers go through the controller as cached edits so the
// live validation message is shown before the value is committed.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// DefaultMaxAttempts bounds how often one field is re-prompted.
const DefaultMaxAttempts = 3

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the prompt driver.
func WithDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithEvaluator overrides the visibility rule evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(s *Session) {
		if evaluator != nil {
			s.evaluator = evaluator
		}
	}
}

// WithExtras sets the context rules see under "extras.".
func WithExtras(extras definition.Extras) Option {
	return func(s *Session) {
		s.extras = extras
	}
}

// WithMaxAttempts bounds re-prompts per field. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session drives one controller through a terminal dialogue.
type Session struct {
	doc         *definition.Document
	ctrl        *form.Controller[definition.Extras]
	driver      PromptDriver
	evaluator   visibility.Evaluator
	extras      definition.Extras
	maxAttempts int
	logger      *slog.Logger
}

// New creates a session over ctrl, which must have been built from doc.
func New(doc *definition.Document, ctrl *form.Controller[definition.Extras], options ...Option) (*Session, error) {
	if doc == nil {
		return nil, errors.New("session: document is nil")
	}
	if ctrl == nil {
		return nil, errors.New("session: controller is nil")
	}
	s := &Session{
		doc:         doc,
		ctrl:        ctrl,
		evaluator:   expr.New(),
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s, nil
}

// Run prompts until every mounted field is answered, then submits. Fields
// mounted by an answer are prompted in layout order; fields unmounted by an
// answer are skipped. The submit callback configured on the controller
// receives the committed values.
func (s *Session) Run(ctx context.Context) error {
	answered := make(map[string]bool, len(s.doc.Fields))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		changes, err := visibility.Sync(s.ctrl, s.doc.Rules(), s.evaluator, s.extras)
		if err != nil {
			return err
		}
		if !changes.Empty() {
			s.logger.Debug("session: visibility changed",
				"registered", changes.Registered, "unregistered", changes.Unregistered)
		}

		field, ok := s.next(answered)
		if !ok {
			break
		}
		if err := s.ask(ctx, field); err != nil {
			return err
		}
		answered[field.Name] = true
	}

	if errs := s.ctrl.Validate(); len(errs) > 0 {
		for _, name := range s.doc.Names() {
			if msg, ok := errs[name]; ok {
				_ = s.driver.Info(ctx, fmt.Sprintf("%s: %s", name, msg))
			}
		}
		return fmt.Errorf("%w: %d field(s) invalid", ErrInvalid, len(errs))
	}
	return s.ctrl.ProcessSubmit(ctx)
}

func (s *Session) next(answered map[string]bool) (definition.Field, bool) {
	for _, field := range s.doc.Fields {
		if !answered[field.Name] && s.ctrl.IsVisible(field.Name) {
			return field, true
		}
	}
	return definition.Field{}, false
}

func (s *Session) ask(ctx context.Context, field definition.Field) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		value, err := s.prompt(ctx, field)
		if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			var parse *parseError
			if !errors.As(err, &parse) {
				return err
			}
			_ = s.driver.Info(ctx, parse.Error())
			continue
		}

		s.ctrl.SetCachedFieldValue(field.Name, value)
		if msg := s.ctrl.Error(field.Name); msg != "" {
			s.logger.Debug("session: answer rejected", "field", field.Name, "attempt", attempt)
			_ = s.driver.Info(ctx, fmt.Sprintf("%s: %s", field.DisplayLabel(), msg))
			continue
		}
		if err := s.ctrl.CommitFieldValue(field.Name); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, field.Name)
}

type parseError struct{ err error }

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

func (s *Session) prompt(ctx context.Context, field definition.Field) (any, error) {
	current := s.ctrl.Value(field.Name)
	switch field.Kind {
	case definition.KindBool:
		def, _ := current.(bool)
		return s.driver.Confirm(ctx, ConfirmConfig{
			Message: field.DisplayLabel(),
			Default: def,
			Help:    field.Help,
		})
	case definition.KindSelect:
		def, _ := current.(string)
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      field.DisplayLabel(),
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, def),
			Help:         field.Help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", nil
		}
		return field.Options[idx], nil
	default:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message: field.DisplayLabel(),
			Default: defaultText(current),
			Help:    field.Help,
		})
		if err != nil {
			return nil, err
		}
		value, err := field.ParseValue(raw)
		if err != nil {
			return nil, &parseError{err: err}
		}
		return value, nil
	}
}

func defaultText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
