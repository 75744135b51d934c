// Package loader implements §4.3's import resolution: `(import
// "relative/path")` paths are resolved relative to the importing
// file, a visiting set on the call stack catches cycles as E-IMPORT,
// and an already-fully-loaded file is read once and reused. The
// merged Program concatenates declarations in import-first,
// then-defining-file order, and every declaration keeps the file
// identifier of the source it actually came from.
package loader

import (
	"os"
	"path/filepath"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/config"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/surface"
)

// FileReader abstracts source retrieval so callers can load from disk
// (the default, via os.ReadFile) or from an in-memory set (tests,
// §8's worked examples, and single-string library callers that never
// touch a filesystem).
type FileReader func(path string) (string, error)

// OSReader reads source files from disk.
func OSReader(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// loader carries the per-invocation cache and visiting set (§3 "No
// shared mutable state exists across invocations"): both are local to
// one Load call and discarded when it returns.
type loader struct {
	read      FileReader
	bag       *diagnostics.Bag
	loaded    map[string]*ast.Program // fully loaded files, keyed by cleaned path
	visiting  map[string]bool         // files on the current import stack
}

// Load reads entry and every file it transitively imports, and returns
// the merged Program in import-first, then-defining-file declaration
// order. A cycle (a file importing itself, directly or transitively)
// is reported as E-IMPORT and loading stops for that branch.
func Load(entry string, read FileReader) (*ast.Program, *diagnostics.Bag) {
	l := &loader{
		read:     read,
		bag:      diagnostics.NewBag(),
		loaded:   make(map[string]*ast.Program),
		visiting: make(map[string]bool),
	}
	merged := &ast.Program{File: entry}
	prog := l.load(entry, ast.Span{File: entry})
	if prog != nil {
		appendAll(merged, prog)
	}
	return merged, l.bag
}

func (l *loader) load(path string, refSpan ast.Span) *ast.Program {
	clean := filepath.Clean(path)
	if cached, ok := l.loaded[clean]; ok {
		return cached
	}
	if l.visiting[clean] {
		l.bag.Add(diagnostics.New(diagnostics.EImport, clean, refSpan, "import cycle detected at %q", clean))
		return nil
	}
	l.visiting[clean] = true
	defer delete(l.visiting, clean)

	if filepath.Ext(clean) != config.SourceFileExt {
		l.bag.Add(diagnostics.New(diagnostics.EIO, clean, refSpan,
			"%q does not use the %s source extension", clean, config.SourceFileExt))
		return nil
	}

	src, err := l.read(clean)
	if err != nil {
		l.bag.Add(diagnostics.New(diagnostics.EIO, clean, refSpan, "cannot read %q: %s", clean, err.Error()))
		return nil
	}

	prog, bag := parseFile(clean, src)
	l.bag.Merge(bag)
	if prog == nil {
		return nil
	}

	merged := &ast.Program{File: clean}
	for _, imp := range prog.Imports {
		importPath := filepath.Join(filepath.Dir(clean), imp.Path)
		imported := l.load(importPath, imp.Sp)
		if imported != nil {
			appendAll(merged, imported)
		}
	}
	appendAll(merged, prog)
	l.loaded[clean] = merged
	return merged
}

// parseFile runs one file through the lex → read-forms → mode-resolve
// → desugar → build chain (§4.1–§4.2), stopping early on E-PARSE or
// E-SYNTAX-AUTO since a malformed file has no usable Program.
func parseFile(file, src string) (*ast.Program, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	forms, readBag := parser.ReadForms(file, src)
	bag.Merge(readBag)
	if readBag.HasFatal() {
		return nil, bag
	}

	declared := parser.DetectMode(src)
	mode, modeBag := parser.ResolveMode(file, forms, declared)
	bag.Merge(modeBag)
	if modeBag.HasFatal() {
		return nil, bag
	}

	if mode == parser.ModeSurface {
		desugared, surfBag := surface.Desugar(file, forms)
		bag.Merge(surfBag)
		if surfBag.HasFatal() {
			return nil, bag
		}
		forms = desugared
	}

	prog, buildBag := parser.BuildProgram(file, forms)
	bag.Merge(buildBag)
	if buildBag.HasFatal() {
		return nil, bag
	}
	return prog, bag
}

// appendAll concatenates src's declarations onto dst, preserving each
// declaration's original file identifier.
func appendAll(dst, src *ast.Program) {
	dst.Imports = append(dst.Imports, src.Imports...)
	dst.Sorts = append(dst.Sorts, src.Sorts...)
	dst.Datas = append(dst.Datas, src.Datas...)
	dst.Relations = append(dst.Relations, src.Relations...)
	dst.Facts = append(dst.Facts, src.Facts...)
	dst.Rules = append(dst.Rules, src.Rules...)
	dst.Asserts = append(dst.Asserts, src.Asserts...)
	dst.Universes = append(dst.Universes, src.Universes...)
	dst.Defns = append(dst.Defns, src.Defns...)
	dst.Aliases = append(dst.Aliases, src.Aliases...)
}
