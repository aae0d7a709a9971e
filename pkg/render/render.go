// Package render turns a form controller snapshot into HTML using pongo2
// templates. Only mounted fields are rendered; help text is sanitised with
// bluemonday before it is emitted unescaped.
package render

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// DefaultTemplate is the template rendered when no other name is configured.
const DefaultTemplate = "form.tmpl"

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in templates so callers can extend them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	name      string
}

// WithTemplatesFS loads templates from fsys instead of the embedded set.
func WithTemplatesFS(fsys fs.FS) Option {
	return func(cfg *config) {
		if fsys != nil {
			cfg.templates = fsys
		}
	}
}

// WithTemplate selects the template rendered by Render.
func WithTemplate(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}

// Renderer renders Views. It is safe for concurrent use.
type Renderer struct {
	set  *pongo2.TemplateSet
	name string

	once sync.Once
	tmpl *pongo2.Template
	err  error
}

// New constructs a Renderer.
func New(options ...Option) *Renderer {
	cfg := config{templates: TemplatesFS(), name: DefaultTemplate}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &Renderer{
		set:  pongo2.NewSet("formstate", pongo2.NewFSLoader(cfg.templates)),
		name: cfg.name,
	}
}

// Render writes the HTML for view to w.
func (r *Renderer) Render(w io.Writer, view View) error {
	if r == nil || r.set == nil {
		return errors.New("render: renderer is nil")
	}
	tmpl, err := r.template()
	if err != nil {
		return err
	}
	if err := tmpl.ExecuteWriter(view.context(), w); err != nil {
		return fmt.Errorf("render: execute %q: %w", r.name, err)
	}
	return nil
}

// RenderString is Render into a string.
func (r *Renderer) RenderString(view View) (string, error) {
	var b strings.Builder
	if err := r.Render(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r *Renderer) template() (*pongo2.Template, error) {
	r.once.Do(func() {
		r.tmpl, r.err = r.set.FromFile(r.name)
		if r.err != nil {
			r.err = fmt.Errorf("render: load template %q: %w", r.name, r.err)
		}
	})
	return r.tmpl, r.err
}
