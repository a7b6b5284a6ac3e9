// Package dsl implements the hand-written recursive-descent parser for the
// namespace configuration language described by the grammar: a sequence of
// namespace blocks, each holding relation blocks, each optionally holding a
// rewrite expression.
package dsl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenLBrace
	tokenRBrace
	tokenLParen
	tokenRParen
	tokenComma
	tokenColon
)

type token struct {
	kind   tokenKind
	text   string
	line   int
	column int
}

func (t token) String() string {
	return fmt.Sprintf("%q at %d:%d", t.text, t.line, t.column)
}

// lexer scans DSL source into tokens, skipping whitespace and `//` comments.
// Identifiers and string contents are normalized to Unicode NFC so that
// visually identical text from different source encodings compares equal.
type lexer struct {
	src    string
	pos    int
	line   int
	column int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, column: 1}
}

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	return r, size
}

func (l *lexer) advance() (rune, int) {
	r, size := l.peekRune()
	if size == 0 {
		return 0, 0
	}
	l.pos += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r, size
}

func (l *lexer) skipInsignificant() {
	for {
		r, size := l.peekRune()
		if size == 0 {
			return
		}
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == '/' && strings.HasPrefix(l.src[l.pos:], "//") {
			for {
				r, size := l.peekRune()
				if size == 0 || r == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *lexer) next() (token, error) {
	l.skipInsignificant()

	startLine, startColumn := l.line, l.column
	r, size := l.peekRune()
	if size == 0 {
		return token{kind: tokenEOF, line: startLine, column: startColumn}, nil
	}

	switch r {
	case '{':
		l.advance()
		return token{kind: tokenLBrace, text: "{", line: startLine, column: startColumn}, nil
	case '}':
		l.advance()
		return token{kind: tokenRBrace, text: "}", line: startLine, column: startColumn}, nil
	case '(':
		l.advance()
		return token{kind: tokenLParen, text: "(", line: startLine, column: startColumn}, nil
	case ')':
		l.advance()
		return token{kind: tokenRParen, text: ")", line: startLine, column: startColumn}, nil
	case ',':
		l.advance()
		return token{kind: tokenComma, text: ",", line: startLine, column: startColumn}, nil
	case ':':
		l.advance()
		return token{kind: tokenColon, text: ":", line: startLine, column: startColumn}, nil
	case '"':
		return l.lexString(startLine, startColumn)
	}

	if isIdentStart(r) {
		return l.lexIdent(startLine, startColumn), nil
	}

	return token{}, fmt.Errorf("unexpected character %q at %d:%d", r, startLine, startColumn)
}

func (l *lexer) lexString(startLine, startColumn int) (token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		r, size := l.peekRune()
		if size == 0 {
			return token{}, fmt.Errorf("unterminated string starting at %d:%d", startLine, startColumn)
		}
		if r == '"' {
			l.advance()
			break
		}
		sb.WriteRune(r)
		l.advance()
	}
	return token{kind: tokenString, text: norm.NFC.String(sb.String()), line: startLine, column: startColumn}, nil
}

func (l *lexer) lexIdent(startLine, startColumn int) token {
	var sb strings.Builder
	for {
		r, size := l.peekRune()
		if size == 0 || !isIdentPart(r) {
			break
		}
		sb.WriteRune(r)
		l.advance()
	}
	return token{kind: tokenIdent, text: norm.NFC.String(sb.String()), line: startLine, column: startColumn}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
