package jack

import (
	"strconv"

	"github.com/n2t-toolchain/hackc/internal/diag"
)

// ----------------------------------------------------------------------------
// Lexer

// Lexer reads Jack source with one (occasionally two, for '/' vs '//' vs '/*') character
// of lookahead and produces 'Token's on demand. It holds the entire source in memory
// (Jack sources are class-sized files, never large) but never materializes a persisted
// token slice or AST: 'Compiler' pulls one token at a time via 'Next'.
type Lexer struct {
	file   string
	source []byte
	pos    int
	line   int
}

// NewLexer returns a Lexer reading 'source', tagging diagnostics with 'file'.
func NewLexer(file string, source []byte) *Lexer {
	return &Lexer{file: file, source: source, line: 1}
}

func (l *Lexer) current() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) lookahead(n int) byte {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

func (l *Lexer) advance() byte {
	c := l.current()
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

// skipIgnored consumes whitespace and comments ('//...', '/* ... */', multiline included).
func (l *Lexer) skipIgnored() error {
	for l.pos < len(l.source) {
		c := l.current()

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()

		case c == '/' && l.lookahead(1) == '/':
			for l.pos < len(l.source) && l.current() != '\n' {
				l.advance()
			}

		case c == '/' && l.lookahead(1) == '*':
			l.advance()
			l.advance()
			closed := false
			for l.pos < len(l.source) {
				if l.current() == '*' && l.lookahead(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return diag.At(diag.Lexical, l.file, l.line, "unterminated block comment")
			}

		default:
			return nil
		}
	}
	return nil
}

// Next consumes and returns the next token, or a TokenEOF token once the source is spent.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipIgnored(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.source) {
		return Token{Type: TokenEOF, Line: l.line}, nil
	}

	line := l.line
	c := l.current()

	switch {
	case c == '"':
		return l.lexString(line)
	case isDigit(c):
		return l.lexInt(line)
	case Symbols[c]:
		l.advance()
		return Token{Type: TokenSymbol, Symbol: c, Line: line}, nil
	case isIdentStart(c):
		return l.lexIdentOrKeyword(line)
	default:
		return Token{}, diag.At(diag.Lexical, l.file, line, "illegal character '%c'", c)
	}
}

func (l *Lexer) lexString(line int) (Token, error) {
	l.advance() // opening quote
	start := l.pos
	for l.pos < len(l.source) && l.current() != '"' {
		if l.current() == '\n' {
			return Token{}, diag.At(diag.Lexical, l.file, line, "unterminated string constant")
		}
		l.advance()
	}
	if l.pos >= len(l.source) {
		return Token{}, diag.At(diag.Lexical, l.file, line, "unterminated string constant")
	}
	value := string(l.source[start:l.pos])
	l.advance() // closing quote
	return Token{Type: TokenStrConst, StrVal: value, Line: line}, nil
}

func (l *Lexer) lexInt(line int) (Token, error) {
	start := l.pos
	for l.pos < len(l.source) && isDigit(l.current()) {
		l.advance()
	}
	value, err := strconv.ParseUint(string(l.source[start:l.pos]), 10, 16)
	if err != nil {
		return Token{}, diag.At(diag.Lexical, l.file, line, "integer constant out of range: %s", l.source[start:l.pos])
	}
	return Token{Type: TokenIntConst, IntVal: uint16(value), Line: line}, nil
}

func (l *Lexer) lexIdentOrKeyword(line int) (Token, error) {
	start := l.pos
	for l.pos < len(l.source) && isIdentPart(l.current()) {
		l.advance()
	}
	lexeme := string(l.source[start:l.pos])
	if Keywords[lexeme] {
		return Token{Type: TokenKeyword, Keyword: lexeme, Line: line}, nil
	}
	return Token{Type: TokenIdentifier, Ident: lexeme, Line: line}, nil
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
