// Package tests runs the §8 end-to-end worked examples as golden
// fixtures, grounded on the teacher's tests/functional_test.go
// "read fixture, run it, diff the outcome" shape but adapted to call
// the library boundary directly (§6) instead of exec'ing a built
// binary, since the verifier core is consumed as a library, not a
// CLI (SPEC_FULL.md's Test tooling section).
package tests

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/loader"
	"github.com/specverify/specverify/verifier"
)

type scenario struct {
	Name         string `yaml:"name"`
	File         string `yaml:"file"`
	ExpectFatal  string `yaml:"expect_fatal"`
	Obligations  []obligationExpectation `yaml:"obligations"`
}

type obligationExpectation struct {
	ID     string `yaml:"id"`
	Result string `yaml:"result"`
}

type manifest struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func loadManifest(t *testing.T) manifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.yaml"))
	if err != nil {
		t.Fatalf("reading scenarios.yaml: %v", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("parsing scenarios.yaml: %v", err)
	}
	return m
}

func TestGoldenScenarios(t *testing.T) {
	m := loadManifest(t)
	for _, sc := range m.Scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			entry := filepath.Join("testdata", sc.File)
			ctx := verifier.Run(entry, loader.OSReader, verifier.LintOptions{})

			if sc.ExpectFatal != "" {
				if !hasCode(ctx.Diagnostics.Items(), sc.ExpectFatal) {
					t.Fatalf("expected a fatal %s diagnostic, got: %v", sc.ExpectFatal, ctx.Diagnostics.Items())
				}
				return
			}
			if ctx.Diagnostics.HasFatal() {
				t.Fatalf("unexpected fatal diagnostics: %v", ctx.Diagnostics.Items())
			}
			if sc.Obligations == nil {
				return
			}
			if ctx.Obligations == nil {
				if len(sc.Obligations) != 0 {
					t.Fatalf("no obligations produced, want %+v", sc.Obligations)
				}
				return
			}
			if len(ctx.Obligations.Obligations) != len(sc.Obligations) {
				t.Fatalf("obligations = %+v, want %+v", ctx.Obligations.Obligations, sc.Obligations)
			}
			for i, want := range sc.Obligations {
				got := ctx.Obligations.Obligations[i]
				if got.ID != want.ID || got.Result != want.Result {
					t.Fatalf("obligation[%d] = %s/%s, want %s/%s", i, got.ID, got.Result, want.ID, want.Result)
				}
			}
		})
	}
}

func hasCode(items []*diagnostics.DiagnosticError, code string) bool {
	for _, d := range items {
		if string(d.DiagCode) == code {
			return true
		}
	}
	return false
}
