package definition

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/goliatone/go-formstate/pkg/validators"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// Validate reports every structural problem in the document. The returned
// error joins one error per problem.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("definition: document is nil")
	}
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("definition: "+format, args...))
	}

	if len(d.Fields) == 0 {
		report("form %q declares no fields", d.Form.ID)
	}

	known := make(map[string]bool, len(d.Fields))
	for i, field := range d.Fields {
		switch {
		case field.Name == "":
			report("field #%d has no name", i+1)
			continue
		case known[field.Name]:
			report("duplicate field %q", field.Name)
			continue
		}
		known[field.Name] = true
	}

	for _, field := range d.Fields {
		if field.Name == "" {
			continue
		}
		switch field.Kind {
		case KindString, KindBool, KindNumber:
		case KindSelect:
			if len(field.Options) == 0 {
				report("field %q: select needs options", field.Name)
			} else if initial, ok := field.Initial.(string); ok && initial != "" && !slices.Contains(field.Options, initial) {
				report("field %q: initial value %q is not an option", field.Name, initial)
			}
		default:
			report("field %q: unknown kind %q", field.Name, field.Kind)
		}

		if tag := strings.TrimSpace(field.Validate); tag != "" {
			if err := validators.CheckTag(tag); err != nil {
				report("field %q: %v", field.Name, err)
			}
		}
		if field.Pattern != "" {
			if _, err := regexp.Compile(field.Pattern); err != nil {
				report("field %q: invalid pattern: %v", field.Name, err)
			}
		}

		if when := strings.TrimSpace(field.When); when != "" {
			program, err := expr.Compile(when)
			if err != nil {
				report("field %q: when: %v", field.Name, err)
			} else {
				for _, ident := range program.Identifiers() {
					if strings.HasPrefix(strings.ToLower(ident), "extras.") {
						continue
					}
					root, _, _ := strings.Cut(ident, ".")
					if !known[root] && !known[ident] {
						report("field %q: when references unknown field %q", field.Name, ident)
					}
				}
			}
		}

		for _, target := range sortedTargets(field.Effects) {
			switch {
			case target == field.Name:
				report("field %q: effect targets itself", field.Name)
			case !known[target]:
				report("field %q: effect targets unknown field %q", field.Name, target)
			}
		}
	}

	return errors.Join(problems...)
}
