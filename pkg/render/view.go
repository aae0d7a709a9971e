package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
)

// View is the template input for one form.
type View struct {
	Form   definition.FormInfo
	Fields []FieldView
	// Valid is false while any mounted field has an error.
	Valid bool
}

// FieldView is one mounted field.
type FieldView struct {
	Name    string
	Kind    string
	Label   string
	Help    string
	Value   string
	Checked bool
	Options []OptionView
	Error   string
	Touched bool
}

// OptionView is one choice of a select field.
type OptionView struct {
	Value    string
	Selected bool
}

var (
	policyOnce sync.Once
	textPolicy *bluemonday.Policy
	helpPolicy *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
		helpPolicy = bluemonday.UGCPolicy()
	})
	return textPolicy, helpPolicy
}

// BuildView assembles a View from a document and a controller snapshot.
// Fields appear in document order and only when mounted. Values shown are
// the effective ones, so uncommitted edits render as typed.
func BuildView[X any](doc *definition.Document, snap form.Snapshot[X]) View {
	text, help := policies()
	view := View{Valid: len(snap.Errors) == 0}
	if doc == nil {
		return view
	}
	view.Form = definition.FormInfo{
		ID:          doc.Form.ID,
		Title:       plain(text, doc.Form.Title),
		Description: plain(text, doc.Form.Description),
	}
	if view.Form.ID == "" {
		view.Form.ID = "form"
	}

	for _, field := range doc.Fields {
		if !snap.Visible[field.Name] {
			continue
		}
		value := snap.Values[field.Name]
		fv := FieldView{
			Name:    field.Name,
			Kind:    string(field.Kind),
			Label:   plain(text, field.DisplayLabel()),
			Help:    strings.TrimSpace(help.Sanitize(field.Help)),
			Value:   display(value),
			Error:   plain(text, snap.Errors[field.Name]),
			Touched: snap.Touched[field.Name],
		}
		if b, ok := value.(bool); ok {
			fv.Checked = b
		}
		for _, option := range field.Options {
			fv.Options = append(fv.Options, OptionView{Value: option, Selected: option == fv.Value})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// plain strips markup from s. The template escapes the result, so entities
// produced by the policy are decoded first.
func plain(policy *bluemonday.Policy, s string) string {
	return html.UnescapeString(policy.Sanitize(s))
}

func display(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (v View) context() pongo2.Context {
	return pongo2.Context{
		"form":   v.Form,
		"fields": v.Fields,
		"valid":  v.Valid,
	}
}
