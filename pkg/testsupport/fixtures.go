// Package testsupport holds helpers shared by package tests: a manual clock
// for debounce timing, definition fixtures and golden files.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// MustLoadDocument loads and validates a definition fixture.
func MustLoadDocument(t *testing.T, path string) *definition.Document {
	t.Helper()

	doc, err := definition.Load(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("validate definition: %v", err)
	}
	return doc
}

// MustController builds a controller for doc over its initial values, mounts
// the fields whose rules hold and closes the controller when the test ends.
func MustController(t *testing.T, doc *definition.Document, options ...form.Option) *form.Controller[definition.Extras] {
	t.Helper()

	ctrl, err := doc.Controller(nil, options...)
	if err != nil {
		t.Fatalf("build controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	if _, err := visibility.Sync(ctrl, doc.Rules(), expr.New(), nil); err != nil {
		t.Fatalf("sync visibility: %v", err)
	}
	return ctrl
}

// MustLoadJSON decodes a JSON golden file into out.
func MustLoadJSON(t *testing.T, path string, out any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set and
// reports whether it did, so the caller can skip the comparison.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}
