// Package formstate is the top-level entry point: it loads a form definition,
// builds its controller with visibility rules applied and renders snapshots.
// The building blocks live under pkg/.
package formstate

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// Document aliases definition.Document.
type Document = definition.Document

// Controller is the controller type built from documents.
type Controller = form.Controller[definition.Extras]

// Values aliases form.Values.
type Values = form.Values

// Load reads the definition at path and builds a controller over its initial
// values with every rule applied once.
func Load(path string, options ...form.Option) (*Document, *Controller, error) {
	doc, err := definition.Load(path)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := Mount(doc, nil, options...)
	if err != nil {
		return nil, nil, err
	}
	return doc, ctrl, nil
}

// LoadOpenAPI is Load for an OpenAPI document and one of its component
// schemas.
func LoadOpenAPI(ctx context.Context, data []byte, component string, options ...form.Option) (*Document, *Controller, error) {
	doc, err := definition.FromOpenAPI(ctx, data, component)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := Mount(doc, nil, options...)
	if err != nil {
		return nil, nil, err
	}
	return doc, ctrl, nil
}

// Mount builds a controller for doc over source and mounts the fields whose
// rules hold. A nil source starts from the document's initial values.
func Mount(doc *Document, source form.Source, options ...form.Option) (*Controller, error) {
	ctrl, err := doc.Controller(source, options...)
	if err != nil {
		return nil, err
	}
	if _, err := Sync(doc, ctrl, nil); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// Sync re-applies the document's rules after values changed.
func Sync(doc *Document, ctrl *Controller, extras definition.Extras) (visibility.Changes, error) {
	return visibility.Sync(ctrl, doc.Rules(), evaluator, extras)
}

var evaluator = expr.New()

// RenderHTML renders the controller's current snapshot with the built-in
// template.
func RenderHTML(doc *Document, ctrl *Controller) (string, error) {
	return render.New().RenderString(render.BuildView(doc, ctrl.Snapshot()))
}

// EmbeddedTemplates exposes the built-in templates so callers can reuse or
// extend them.
func EmbeddedTemplates() fs.FS {
	return render.TemplatesFS()
}
