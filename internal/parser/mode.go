package parser

import (
	"regexp"
	"strings"

	"github.com/specverify/specverify/internal/diagnostics"
)

// Mode selects which concrete syntax a file is parsed under (§4.1).
type Mode int

const (
	ModeAuto Mode = iota
	ModeCore
	ModeSurface
)

var pragmaRe = regexp.MustCompile(`^;\s*syntax:\s*(core|surface|auto)\s*$`)

// DetectMode scans src for the `; syntax: core|surface|auto` pragma on
// the first non-blank, non-comment-only... actually the *first*
// non-blank line per §4.1, which for a line comment line IS the
// pragma candidate itself (pragmas are themselves comments). Absence
// of a matching pragma on that first non-blank line means auto.
func DetectMode(src string) Mode {
	lines := strings.Split(src, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := pragmaRe.FindStringSubmatch(trimmed)
		if m == nil {
			return ModeAuto
		}
		switch m[1] {
		case "core":
			return ModeCore
		case "surface":
			return ModeSurface
		default:
			return ModeAuto
		}
	}
	return ModeAuto
}

// surfaceKeywords lists the top-level Surface keyword aliases named in
// §4.1/§4.2 (型, データ, 関係) plus a documented extension covering
// every Core top-level keyword, so `auto` detection and desugaring
// treat the alias set uniformly instead of special-casing three words.
var surfaceKeywords = map[string]string{
	"型":   "sort",
	"データ": "data",
	"関係":  "relation",
	"事実":  "fact",
	"規則":  "rule",
	"主張":  "assert",
	"領域":  "universe",
	"定義":  "defn",
	"別名":  "alias",
	"輸入":  "import",
}

// TagAliases maps every tagged positional-argument keyword (§4.2) to
// its canonical field name; both the Japanese and ASCII spellings
// desugar identically. Exported for internal/surface, which performs
// the actual tag-argument reordering.
var TagAliases = map[string]string{
	":引数":         "args",
	":args":        "args",
	":コンストラクタ":    "constructors",
	":constructors": "constructors",
	":頭":          "head",
	":head":        "head",
	":本体":         "body",
	":body":        "body",
	":項":          "terms",
	":terms":       "terms",
	":式":          "formula",
	":formula":     "formula",
	":params":      "params",
	":戻り":         "ret",
	":ret":         "ret",
	":値":          "values",
	":values":      "values",
}

// IsSurfaceKeyword reports whether name is a recognized Surface
// keyword alias for a Core top-level form.
func IsSurfaceKeyword(name string) (string, bool) {
	canon, ok := surfaceKeywords[name]
	return canon, ok
}

// TagOf reports whether item is a leading `:tag` positional-argument
// marker atom — the Surface convention for out-of-order keyword
// arguments. Exported for internal/surface.
func TagOf(s SExpr) (string, bool) {
	a, ok := s.(*Atom)
	if !ok || a.Quoted {
		return "", false
	}
	if !strings.HasPrefix(a.Literal, ":") {
		return "", false
	}
	return a.Literal, true
}

// SurfaceKeywordFor is the exported form of the surfaceKeywords table
// lookup, with the reverse direction internal/surface needs when
// deciding whether a top-level head is a Core keyword already.
func SurfaceKeywordFor(name string) (string, bool) {
	canon, ok := surfaceKeywords[name]
	return canon, ok
}

// CoreKeyword reports whether name is a recognized Core top-level
// keyword.
func CoreKeyword(name string) bool {
	return coreKeywords[name]
}

// formIsSurface reports whether a top-level form uses Surface syntax:
// its head is a Surface keyword alias, or any immediate child is a
// `(:tag value)` pair.
func formIsSurface(l *List) bool {
	if _, ok := IsSurfaceKeyword(l.Head()); ok {
		return true
	}
	for _, item := range l.Items {
		child, ok := item.(*List)
		if !ok || len(child.Items) == 0 {
			continue
		}
		if _, ok := TagOf(child.Items[0]); ok {
			return true
		}
	}
	return false
}

// formIsCoreOnly reports whether a top-level form unambiguously uses
// Core syntax: its head is a Core keyword and it is not formIsSurface.
var coreKeywords = map[string]bool{
	"sort": true, "data": true, "relation": true, "fact": true,
	"rule": true, "assert": true, "universe": true, "defn": true,
	"alias": true, "import": true,
}

func formIsCoreOnly(l *List) bool {
	return coreKeywords[l.Head()] && !formIsSurface(l)
}

// ResolveMode applies §4.1's `auto` conflict detection: in ModeAuto, if
// the file mixes Core-only and Surface-tagged top-level forms, it
// fails E-SYNTAX-AUTO. In ModeCore/ModeSurface the declared mode wins
// unconditionally (no cross-checking — an explicit pragma is trusted).
func ResolveMode(file string, forms []*List, declared Mode) (Mode, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	if declared != ModeAuto {
		return declared, bag
	}
	sawCore, sawSurface := false, false
	for _, f := range forms {
		if formIsSurface(f) {
			sawSurface = true
		} else if formIsCoreOnly(f) {
			sawCore = true
		}
		if sawCore && sawSurface {
			bag.Add(diagnostics.New(diagnostics.ESyntaxAuto, file, f.Span(),
				"file mixes Core and Surface forms under auto syntax mode"))
			return ModeAuto, bag
		}
	}
	if sawSurface {
		return ModeSurface, bag
	}
	return ModeCore, bag
}
