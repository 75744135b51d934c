// Package parser turns a token stream into S-expression forms and then
// into the Core ast.Program (§4.1). Reading is split into two passes,
// mirroring the teacher's own parser/lexer separation (internal/parser
// consumes internal/lexer's tokens one at a time rather than a
// pre-tokenized slice): ReadForms produces a generic parenthesized
// tree (List/Atom) with no knowledge of keywords, and BuildProgram
// walks that tree dispatching on keyword to produce typed ast nodes.
// Surface forms are desugared into canonical Core-shaped S-expressions
// by internal/surface *between* those two passes.
package parser

import (
	"fmt"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/lexer"
	"github.com/specverify/specverify/internal/token"
)

// SExpr is either a List or an Atom.
type SExpr interface {
	Span() ast.Span
}

// List is a parenthesized form: `(item1 item2 ...)`.
type List struct {
	Sp    ast.Span
	Items []SExpr
}

func (l *List) Span() ast.Span { return l.Sp }

// Head returns the first item's literal if it is a bare atom, or ""
// otherwise — used throughout the builder to dispatch on keyword.
func (l *List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(*Atom); ok && !a.Quoted {
		return a.Literal
	}
	return ""
}

// Atom is a bare or quoted atom.
type Atom struct {
	Sp      ast.Span
	Literal string
	Quoted  bool
}

func (a *Atom) Span() ast.Span { return a.Sp }

// ReadForms reads every top-level form in src and returns it as a
// forest of Lists. A bare top-level atom, or unbalanced parentheses,
// is E-PARSE.
func ReadForms(file, src string) ([]*List, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	l := lexer.New(src)

	var toks []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			bag.Add(diagnostics.New(diagnostics.EParse, file, ast.Span{File: file}, "%s", err.Error()))
			return nil, bag
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	p := &formReader{file: file, toks: toks, bag: bag}
	var forms []*List
	for !p.atEOF() {
		if p.peek().Type == token.RPAREN {
			p.errorf(p.spanFor(p.peek()), "unexpected ')'")
			p.advance()
			continue
		}
		form, ok := p.readForm()
		if !ok {
			break
		}
		list, ok := form.(*List)
		if !ok {
			p.errorf(form.Span(), "top-level form must be a parenthesized list")
			continue
		}
		forms = append(forms, list)
	}
	return forms, bag
}

type formReader struct {
	file string
	toks []token.Token
	pos  int
	bag  *diagnostics.Bag
}

func (p *formReader) peek() token.Token { return p.toks[p.pos] }
func (p *formReader) atEOF() bool       { return p.peek().Type == token.EOF }
func (p *formReader) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *formReader) spanFor(tok token.Token) ast.Span {
	return ast.Span{File: p.file, Start: tok.Offset, End: tok.Offset + len(tok.Lexeme), Line: tok.Line, Col: tok.Column}
}

func (p *formReader) errorf(sp ast.Span, format string, args ...any) {
	p.bag.Add(diagnostics.New(diagnostics.EParse, p.file, sp, format, args...))
}

// readForm reads one List or Atom starting at the current position.
func (p *formReader) readForm() (SExpr, bool) {
	tok := p.peek()
	switch tok.Type {
	case token.LPAREN:
		start := p.advance()
		var items []SExpr
		for {
			if p.atEOF() {
				p.bag.Add(diagnostics.New(diagnostics.EParse, p.file, p.spanFor(start), "unterminated list starting at line %d", start.Line))
				return &List{Sp: p.spanFor(start), Items: items}, false
			}
			if p.peek().Type == token.RPAREN {
				end := p.advance()
				return &List{Sp: ast.Span{File: p.file, Start: start.Offset, End: end.Offset + 1, Line: start.Line, Col: start.Column}, Items: items}, true
			}
			item, ok := p.readForm()
			items = append(items, item)
			if !ok {
				return &List{Sp: p.spanFor(start), Items: items}, false
			}
		}
	case token.RPAREN:
		p.bag.Add(diagnostics.New(diagnostics.EParse, p.file, p.spanFor(tok), "unexpected ')'"))
		p.advance()
		return &Atom{Sp: p.spanFor(tok), Literal: ")"}, true
	case token.ATOM:
		p.advance()
		return &Atom{Sp: p.spanFor(tok), Literal: tok.Literal}, true
	case token.QUOTED:
		p.advance()
		return &Atom{Sp: p.spanFor(tok), Literal: tok.Literal, Quoted: true}, true
	case token.EOF:
		return &Atom{Sp: p.spanFor(tok), Literal: ""}, false
	default:
		p.bag.Add(diagnostics.New(diagnostics.EParse, p.file, p.spanFor(tok), "unexpected token %v", tok.Type))
		p.advance()
		return &Atom{Sp: p.spanFor(tok), Literal: ""}, true
	}
}

// String renders an SExpr back to source-ish text.
func String(e SExpr) string {
	switch v := e.(type) {
	case *Atom:
		if v.Quoted {
			return fmt.Sprintf("%q", v.Literal)
		}
		return v.Literal
	case *List:
		s := "("
		for i, it := range v.Items {
			if i > 0 {
				s += " "
			}
			s += String(it)
		}
		return s + ")"
	default:
		return ""
	}
}
