// Command specverify is the CLI entrypoint for the verifier library,
// grounded on funxy's subcommand-over-os.Args dispatch (cmd/funxy's
// handleCompile/handleRun pattern) but trimmed to this domain's single
// job: load a .spec entry file, run the full pipeline, and report
// diagnostics and proof obligations.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/specverify/specverify/internal/loader"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/prove"
	"github.com/specverify/specverify/verifier"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	semantic := false
	var entry string
	for _, arg := range os.Args[1:] {
		if arg == "-semantic-lint" {
			semantic = true
			continue
		}
		entry = arg
	}
	if entry == "" {
		usage()
		os.Exit(1)
	}

	ctx := verifier.Run(entry, loader.OSReader, verifier.LintOptions{Semantic: semantic})

	for _, d := range ctx.Diagnostics.Items() {
		fmt.Fprintln(os.Stderr, d.Error())
	}

	failed := false
	if ctx.Obligations != nil {
		failed = printObligations(ctx.Obligations.Obligations)
	}
	for _, c := range ctx.DuplicateCandidates {
		fmt.Printf("L-DUP-MAYBE: %s %q ~ %s %q (confidence %.2f)\n",
			c.KindA, c.NameA, c.KindB, c.NameB, c.Confidence)
	}

	if ctx.Diagnostics.HasFatal() {
		os.Exit(1)
	}
	if failed {
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-semantic-lint] <entry.spec>\n", os.Args[0])
}

// printObligations prints one line per proof obligation in the
// prover's canonical order and reports whether any obligation failed.
func printObligations(obs []prove.Obligation) bool {
	anyFailed := false
	for _, ob := range obs {
		if ob.Result != "proved" {
			anyFailed = true
		}
		fmt.Printf("%s %s: %s\n", ob.Kind, ob.ID, ob.Result)
		if ob.Result == "proved" {
			continue
		}
		names := make([]string, 0, len(ob.Valuation))
		for n := range ob.Valuation {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s=%s", n, logic.RenderTerm(ob.Valuation[n]))
		}
		fmt.Printf("  valuation: {%s}\n", strings.Join(parts, ", "))
		if len(ob.MissingGoals) > 0 {
			fmt.Printf("  missing goals: %s\n", strings.Join(ob.MissingGoals, ", "))
		}
	}
	return anyFailed
}
