package lexer

import (
	"testing"

	"github.com/specverify/specverify/internal/token"
)

func collect(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func TestBareAtomsAndParens(t *testing.T) {
	toks := collect(t, "(sort Subject)")
	want := []token.Type{token.LPAREN, token.ATOM, token.ATOM, token.RPAREN, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
	if toks[1].Literal != "sort" || toks[2].Literal != "Subject" {
		t.Errorf("unexpected literals: %q %q", toks[1].Literal, toks[2].Literal)
	}
}

func TestLineCommentSkipped(t *testing.T) {
	toks := collect(t, "; a comment\n(a)")
	if toks[0].Type != token.LPAREN {
		t.Errorf("expected comment to be skipped, got %v first", toks[0].Type)
	}
}

func TestQuotedAtomEscapes(t *testing.T) {
	toks := collect(t, `"line\nbreak \"q\""`)
	if toks[0].Type != token.QUOTED {
		t.Fatalf("expected QUOTED, got %v", toks[0].Type)
	}
	want := "line\nbreak \"q\""
	if toks[0].Literal != want {
		t.Errorf("got %q, want %q", toks[0].Literal, want)
	}
}

func TestQuotedAtomInvalidEscape(t *testing.T) {
	l := New(`"bad\xescape"`)
	_, err := l.NextToken()
	if err == nil {
		t.Fatal("expected error for invalid escape sequence")
	}
}

// TestBareAtomNFCNormalization checks that "e" followed by a combining
// acute accent (U+0301, NFD form) normalizes to the single precomposed
// code point U+00E9 (NFC form) per section 4.1.
func TestBareAtomNFCNormalization(t *testing.T) {
	decomposed := "e\u0301"
	toks := collect(t, decomposed)
	precomposed := "\u00e9"
	if toks[0].Literal != precomposed {
		t.Errorf("got %q, want %q", toks[0].Literal, precomposed)
	}
}

func TestQuotedAtomNotNormalized(t *testing.T) {
	decomposed := "e\u0301"
	src := `"` + decomposed + `"`
	toks := collect(t, src)
	if toks[0].Literal != decomposed {
		t.Errorf("quoted atom was normalized; got %q, want raw %q", toks[0].Literal, decomposed)
	}
}
