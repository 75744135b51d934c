// Package lexer tokenizes S-expression source per §4.1: atoms are
// separated by whitespace, '(', ')', and the start of a line comment
// ';'. Structurally this is the teacher's rune-at-a-time scanner
// (internal/lexer/lexer.go: position/readPosition/ch/line/column,
// NextToken dispatching on l.ch) re-specialized from an infix keyword
// language down to a parenthesized-atom reader.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/specverify/specverify/internal/token"
)

// Lexer scans UTF-8 source into tokens.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
}

// New constructs a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func isDelimiter(ch rune) bool {
	return ch == 0 || ch == '(' || ch == ')' || ch == ';' || unicode.IsSpace(ch)
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// NextToken returns the next token, an EOF token at the end of input,
// or an error on a lexical fault (ReadForms reports it as E-PARSE).
func (l *Lexer) NextToken() (token.Token, error) {
	for {
		l.skipWhitespace()
		if l.ch == ';' {
			l.skipLineComment()
			continue
		}
		break
	}

	line, col, offset := l.line, l.column, l.position

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col, Offset: offset}, nil
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Lexeme: "(", Line: line, Column: col, Offset: offset}, nil
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Lexeme: ")", Line: line, Column: col, Offset: offset}, nil
	case '"':
		return l.readQuotedAtom(line, col, offset)
	default:
		return l.readBareAtom(line, col, offset)
	}
}

func (l *Lexer) readBareAtom(line, col, offset int) (token.Token, error) {
	var sb strings.Builder
	for !isDelimiter(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	raw := sb.String()
	if raw == "" {
		return token.Token{}, fmt.Errorf("unexpected character %q at line %d column %d", l.ch, line, col)
	}
	normalized := norm.NFC.String(raw)
	return token.Token{
		Type:    token.ATOM,
		Lexeme:  raw,
		Literal: normalized,
		Line:    line,
		Column:  col,
		Offset:  offset,
	}, nil
}

var validEscapes = map[rune]rune{
	'\\': '\\',
	'"':  '"',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
}

func (l *Lexer) readQuotedAtom(line, col, offset int) (token.Token, error) {
	l.readChar() // consume opening quote
	var raw strings.Builder
	var decoded strings.Builder
	raw.WriteByte('"')
	for {
		if l.ch == 0 {
			return token.Token{}, fmt.Errorf("unterminated quoted atom starting at line %d column %d", line, col)
		}
		if l.ch == '"' {
			raw.WriteByte('"')
			l.readChar()
			break
		}
		if l.ch == '\\' {
			raw.WriteRune(l.ch)
			l.readChar()
			esc, ok := validEscapes[l.ch]
			if !ok {
				return token.Token{}, fmt.Errorf("invalid escape sequence \\%c at line %d column %d", l.ch, l.line, l.column)
			}
			raw.WriteRune(l.ch)
			decoded.WriteRune(esc)
			l.readChar()
			continue
		}
		raw.WriteRune(l.ch)
		decoded.WriteRune(l.ch)
		l.readChar()
	}
	return token.Token{
		Type:    token.QUOTED,
		Lexeme:  raw.String(),
		Literal: decoded.String(), // quoted atoms are never NFC-normalized (§4.1)
		Line:    line,
		Column:  col,
		Offset:  offset,
	}, nil
}
