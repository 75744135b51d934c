// Package surface lowers tagged Surface forms into Core-shaped
// S-expressions (§4.2). Desugaring operates one top-level declaration
// form at a time: keyword aliases collapse to their canonical Core
// keyword, and `:tag value` positional arguments are reordered into
// Core's fixed positional order. The result is bit-for-bit equivalent
// Core syntax that internal/parser's builder consumes exactly as if
// it had been written directly in Core.
package surface

import (
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/parser"
)

// fieldSpec is one field of a declaration's canonical field section
// (everything after the form's leading positional atoms).
type fieldSpec struct {
	name   string
	splice bool // true: the field's value is a run of sibling items; false: exactly one
}

// schema describes, for each canonical Core keyword, how many leading
// positional atoms precede the field section and what fields follow,
// in canonical order (§4.2's tag list, applied to the Core grammar
// fixed by the worked examples in §8).
var schema = map[string]struct {
	leading int
	fields  []fieldSpec
}{
	"sort":     {leading: 1, fields: nil},
	"data":     {leading: 1, fields: []fieldSpec{{"constructors", true}}},
	"relation": {leading: 1, fields: []fieldSpec{{"args", true}}},
	"fact":     {leading: 1, fields: []fieldSpec{{"terms", true}}},
	"rule":     {leading: 0, fields: []fieldSpec{{"head", false}, {"body", false}}},
	"assert":   {leading: 1, fields: []fieldSpec{{"params", false}, {"formula", false}}},
	"universe": {leading: 1, fields: []fieldSpec{{"values", true}}},
	"defn":     {leading: 1, fields: []fieldSpec{{"params", false}, {"ret", false}, {"body", false}}},
	"alias":    {leading: 2, fields: nil},
	"import":   {leading: 1, fields: nil},
}

// Desugar rewrites every top-level form to canonical Core shape. It is
// deterministic and idempotent: a form already in canonical Core shape
// (no Surface keyword head, no `:tag` children) is returned unchanged.
func Desugar(file string, forms []*parser.List) ([]*parser.List, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	out := make([]*parser.List, 0, len(forms))
	for _, f := range forms {
		d, ok := desugarForm(file, f, bag)
		if ok {
			out = append(out, d)
		}
	}
	return out, bag
}

func desugarForm(file string, l *parser.List, bag *diagnostics.Bag) (*parser.List, bool) {
	if len(l.Items) == 0 {
		return l, true
	}
	headAtom, ok := l.Items[0].(*parser.Atom)
	if !ok {
		bag.Add(diagnostics.New(diagnostics.EParse, file, l.Span(), "declaration head must be a bare keyword atom"))
		return l, false
	}

	canon := headAtom.Literal
	if c, isSurface := parser.SurfaceKeywordFor(headAtom.Literal); isSurface {
		canon = c
	}

	sch, known := schema[canon]
	if !known {
		bag.Add(diagnostics.New(diagnostics.EParse, file, l.Span(), "unknown declaration keyword %q", headAtom.Literal))
		return l, false
	}

	rest := l.Items[1:]
	if sch.leading > len(rest) {
		bag.Add(diagnostics.New(diagnostics.EParse, file, l.Span(), "%q expects at least %d leading argument(s)", canon, sch.leading))
		return l, false
	}
	leadingItems := rest[:sch.leading]
	remaining := rest[sch.leading:]

	if len(sch.fields) == 0 {
		// No field section to reorder: identity modulo the keyword swap.
		newHead := &parser.Atom{Sp: headAtom.Sp, Literal: canon}
		items := append([]parser.SExpr{newHead}, append(append([]parser.SExpr{}, leadingItems...), remaining...)...)
		return &parser.List{Sp: l.Sp, Items: items}, true
	}

	tagged := make(map[string][]parser.SExpr)
	var untagged []parser.SExpr
	sawTag := false
	for _, item := range remaining {
		child, isList := item.(*parser.List)
		if isList && len(child.Items) > 0 {
			if tagLit, isTag := parser.TagOf(child.Items[0]); isTag {
				fieldName, known := parser.TagAliases[tagLit]
				if !known {
					bag.Add(diagnostics.New(diagnostics.EParse, file, child.Span(), "unknown surface tag %q", tagLit))
					return l, false
				}
				tagged[fieldName] = append(tagged[fieldName], child.Items[1:]...)
				sawTag = true
				continue
			}
		}
		untagged = append(untagged, item)
	}

	if !sawTag {
		// Already Core-positional; nothing to reorder (idempotence).
		newHead := &parser.Atom{Sp: headAtom.Sp, Literal: canon}
		items := append([]parser.SExpr{newHead}, append(append([]parser.SExpr{}, leadingItems...), remaining...)...)
		return &parser.List{Sp: l.Sp, Items: items}, true
	}

	var assembled []parser.SExpr
	uti := 0
	for _, fs := range sch.fields {
		if vals, ok := tagged[fs.name]; ok {
			assembled = append(assembled, vals...)
			continue
		}
		if fs.splice {
			assembled = append(assembled, untagged[uti:]...)
			uti = len(untagged)
			continue
		}
		if uti >= len(untagged) {
			bag.Add(diagnostics.New(diagnostics.EParse, file, l.Span(), "%q missing required field %q", canon, fs.name))
			return l, false
		}
		assembled = append(assembled, untagged[uti])
		uti++
	}

	newHead := &parser.Atom{Sp: headAtom.Sp, Literal: canon}
	items := append([]parser.SExpr{newHead}, append(append([]parser.SExpr{}, leadingItems...), assembled...)...)
	return &parser.List{Sp: l.Sp, Items: items}, true
}
