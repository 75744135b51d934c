package verifier_test

import (
	"testing"

	"github.com/specverify/specverify/verifier"
)

func mapReader(files map[string]string) func(string) (string, error) {
	return func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", &pathError{path}
		}
		return src, nil
	}
}

type pathError struct{ path string }

func (e *pathError) Error() string { return "no such file: " + e.path }

func TestRunFullPipelineProvesAssert(t *testing.T) {
	files := map[string]string{
		"main.spec": `
			(sort Subject)
			(sort Resource)
			(data Action (read) (write))
			(relation can-access Subject Resource Action)
			(fact can-access alice doc1 (read))
			(universe Subject (alice))
			(universe Resource (doc1))
			(universe Action ((read) (write)))
			(assert read-granted ((u Subject)) (can-access u doc1 (read)))
		`,
	}
	ctx := verifier.Run("main.spec", mapReader(files), verifier.LintOptions{})
	if ctx.Diagnostics.HasFatal() {
		t.Fatalf("unexpected fatal diagnostics: %v", ctx.Diagnostics.Items())
	}
	if ctx.Obligations == nil || len(ctx.Obligations.Obligations) != 1 {
		t.Fatalf("obligations = %+v", ctx.Obligations)
	}
	if ctx.Obligations.Obligations[0].Result != "proved" {
		t.Fatalf("result = %q, want proved", ctx.Obligations.Obligations[0].Result)
	}
}

func TestRunStopsAtParseError(t *testing.T) {
	files := map[string]string{"main.spec": `(sort`}
	ctx := verifier.Run("main.spec", mapReader(files), verifier.LintOptions{})
	if !ctx.Diagnostics.HasFatal() {
		t.Fatalf("expected a fatal E-PARSE diagnostic")
	}
	if ctx.Program != nil {
		t.Fatalf("Program should remain nil after a parse failure")
	}
}

func TestRunAttributesDiagnosticToTheImportedFileItCameFrom(t *testing.T) {
	files := map[string]string{
		"defs.spec": `
			(sort Subject)
			(relation can-access Subject)
			(fact can-access 1)
		`,
		"main.spec": `
			(import "defs.spec")
		`,
	}
	ctx := verifier.Run("main.spec", mapReader(files), verifier.LintOptions{})
	if !ctx.Diagnostics.HasFatal() {
		t.Fatalf("expected a fatal E-TYPE diagnostic from the imported file")
	}
	for _, d := range ctx.Diagnostics.Items() {
		if string(d.DiagCode) != "E-TYPE" {
			continue
		}
		if d.Source != "defs.spec" {
			t.Fatalf("diagnostic Source = %q, want %q (the declaring file, not the entry file)", d.Source, "defs.spec")
		}
		return
	}
	t.Fatalf("no E-TYPE diagnostic found: %v", ctx.Diagnostics.Items())
}

func TestRunReportsUnstratifiableNegationCycle(t *testing.T) {
	files := map[string]string{
		"main.spec": `
			(data Node (a))
			(relation dom Node)
			(relation p Node)
			(relation q Node)
			(fact dom (a))
			(rule (p ?x) (and (dom ?x) (not (q ?x))))
			(rule (q ?x) (and (dom ?x) (not (p ?x))))
		`,
	}
	ctx := verifier.Run("main.spec", mapReader(files), verifier.LintOptions{})
	if !ctx.Diagnostics.HasFatal() {
		t.Fatalf("expected E-STRATIFY for the negation cycle")
	}
	if ctx.Model != nil {
		t.Fatalf("Model should remain nil when stratification fails")
	}
}
