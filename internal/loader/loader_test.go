package loader_test

import (
	"path/filepath"
	"testing"

	"github.com/specverify/specverify/internal/loader"
)

// mapReader serves fixed source text from an in-memory set, keyed by
// cleaned path, so tests never touch the filesystem.
func mapReader(files map[string]string) loader.FileReader {
	return func(path string) (string, error) {
		clean := filepath.Clean(path)
		if src, ok := files[clean]; ok {
			return src, nil
		}
		return "", &pathError{clean}
	}
}

type pathError struct{ path string }

func (e *pathError) Error() string { return "no such file: " + e.path }

func TestLoadMergesImportFirst(t *testing.T) {
	files := map[string]string{
		"a.spec": `(sort Subject)`,
		"b.spec": `
			(import "a.spec")
			(sort Resource)
		`,
	}
	prog, bag := loader.Load("b.spec", mapReader(files))
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(prog.Sorts) != 2 {
		t.Fatalf("sorts = %+v", prog.Sorts)
	}
	if prog.Sorts[0].Name != "Subject" || prog.Sorts[1].Name != "Resource" {
		t.Fatalf("import-first order violated: %+v", prog.Sorts)
	}
}

func TestLoadDetectsCycle(t *testing.T) {
	files := map[string]string{
		"a.spec": `(import "b.spec")`,
		"b.spec": `(import "a.spec")`,
	}
	_, bag := loader.Load("a.spec", mapReader(files))
	if !bag.HasFatal() {
		t.Fatalf("expected a fatal E-IMPORT diagnostic, got %v", bag.Items())
	}
}

func TestLoadRejectsWrongExtension(t *testing.T) {
	files := map[string]string{
		"a.txt": `(sort Subject)`,
	}
	_, bag := loader.Load("a.txt", mapReader(files))
	if !bag.HasFatal() {
		t.Fatalf("expected a fatal E-IO diagnostic for a non-.spec entry, got %v", bag.Items())
	}
}

func TestLoadDoesNotReReadSharedImport(t *testing.T) {
	files := map[string]string{
		"common.spec": `(sort Subject)`,
		"a.spec":      `(import "common.spec")`,
		"b.spec": `
			(import "a.spec")
			(import "common.spec")
		`,
	}
	prog, bag := loader.Load("b.spec", mapReader(files))
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	// common.spec is read from disk once (cached after the first load)
	// but its declarations are merged again for each importer that
	// names it, so Subject appears twice: once via a.spec, once direct.
	if len(prog.Sorts) != 2 {
		t.Fatalf("sorts = %+v", prog.Sorts)
	}
}
