package reflectgen

import (
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// TokenKind classifies a lexical token produced by lexer over the narrow C
// subset the reflection preprocessor understands (spec §4.1.3: it is
// deliberately not a full C parser).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokString
	TokPunct   // single-character punctuation: { } ( ) [ ] ; , * = :
	TokPragma  // raw body of a '#...' or '__pragma(...)' form
)

// Token is one lexical unit together with the position it started at and
// the raw source text that produced it (used verbatim when copying
// declarations into Sections.Declaration).
type Token struct {
	Kind TokenKind
	Text string
	Pos  diag.Position
}

// lexer turns a Tokenizer's byte stream into Tokens for the declaration
// parser. It keeps a small lookahead queue so the parser can peek several
// tokens ahead (needed to distinguish "struct NAME {" from a struct-typed
// declaration such as "struct NAME *p;").
type lexer struct {
	t     *Tokenizer
	queue []Token
}

func newLexer(t *Tokenizer) *lexer {
	return &lexer{t: t}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == '\v'
}

// Peek returns, without consuming, the next token.
func (l *lexer) Peek() Token {
	return l.PeekN(0)
}

// PeekN returns, without consuming, the token n positions ahead (0 is the
// next token).
func (l *lexer) PeekN(n int) Token {
	for len(l.queue) <= n {
		l.queue = append(l.queue, l.scan())
	}
	return l.queue[n]
}

// Next consumes and returns the next token.
func (l *lexer) Next() Token {
	if len(l.queue) > 0 {
		tok := l.queue[0]
		l.queue = l.queue[1:]
		return tok
	}
	return l.scan()
}

// skipWhitespaceAndComments consumes whitespace and C-style comments
// (// and /* */, including nested-safe termination), mirroring
// expr/partiql.scanner.chompws but over the streamed Tokenizer.
func (l *lexer) skipWhitespaceAndComments() {
	for {
		b, ok := l.t.Peek()
		if !ok {
			return
		}
		if isSpace(b) {
			l.t.Advance()
			continue
		}
		if b == '/' {
			nb, ok := l.t.PeekAt(1)
			if ok && nb == '/' {
				for {
					c, ok := l.t.Advance()
					if !ok || c == '\n' {
						break
					}
				}
				continue
			}
			if ok && nb == '*' {
				l.t.Advance()
				l.t.Advance()
				for {
					c, ok := l.t.Advance()
					if !ok {
						return
					}
					if c == '*' {
						if n2, ok := l.t.Peek(); ok && n2 == '/' {
							l.t.Advance()
							break
						}
					}
				}
				continue
			}
		}
		return
	}
}

func (l *lexer) scan() Token {
	l.skipWhitespaceAndComments()
	pos := l.t.Pos()
	b, ok := l.t.Peek()
	if !ok {
		return Token{Kind: TokEOF, Pos: pos}
	}

	if b == '#' {
		return l.scanHashPragma(pos)
	}
	if isIdentStart(b) {
		ident := l.scanIdent()
		if ident == "__pragma" {
			return l.scanParenPragma(pos)
		}
		return Token{Kind: TokIdent, Text: ident, Pos: pos}
	}
	if isDigit(b) {
		return Token{Kind: TokNumber, Text: l.scanNumberOrExprText(), Pos: pos}
	}
	if b == '"' {
		return Token{Kind: TokString, Text: l.scanString(), Pos: pos}
	}

	l.t.Advance()
	return Token{Kind: TokPunct, Text: string(b), Pos: pos}
}

func (l *lexer) scanIdent() string {
	var sb strings.Builder
	for {
		b, ok := l.t.Peek()
		if !ok || !isIdentCont(b) {
			break
		}
		l.t.Advance()
		sb.WriteByte(b)
	}
	return sb.String()
}

// scanNumberOrExprText greedily consumes a token that looks like a number
// or a simple constant expression fragment (used for `= EXPR` initializer
// bodies, which this preprocessor copies verbatim rather than evaluating).
func (l *lexer) scanNumberOrExprText() string {
	var sb strings.Builder
	for {
		b, ok := l.t.Peek()
		if !ok || isSpace(b) || b == ',' || b == ';' || b == ')' || b == '}' {
			break
		}
		l.t.Advance()
		sb.WriteByte(b)
	}
	return sb.String()
}

func (l *lexer) scanString() string {
	var sb strings.Builder
	l.t.Advance() // opening quote
	sb.WriteByte('"')
	for {
		b, ok := l.t.Advance()
		if !ok {
			break
		}
		sb.WriteByte(b)
		if b == '\\' {
			if nb, ok := l.t.Advance(); ok {
				sb.WriteByte(nb)
			}
			continue
		}
		if b == '"' {
			break
		}
	}
	return sb.String()
}

// scanHashPragma reads a whole '#...' line as a pragma form (spec §4.1.3).
func (l *lexer) scanHashPragma(pos diag.Position) Token {
	var sb strings.Builder
	for {
		b, ok := l.t.Peek()
		if !ok || b == '\n' {
			break
		}
		l.t.Advance()
		sb.WriteByte(b)
	}
	return Token{Kind: TokPragma, Text: sb.String(), Pos: pos}
}

// scanParenPragma reads a `__pragma(...)` form, tolerating any closing
// paren as a terminator per spec §6.3.
func (l *lexer) scanParenPragma(pos diag.Position) Token {
	l.skipWhitespaceAndComments()
	if b, ok := l.t.Peek(); ok && b == '(' {
		l.t.Advance()
	}
	var sb strings.Builder
	depth := 1
	for {
		b, ok := l.t.Advance()
		if !ok {
			break
		}
		if b == '(' {
			depth++
		}
		if b == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
		sb.WriteByte(b)
	}
	return Token{Kind: TokPragma, Text: strings.TrimSpace(sb.String()), Pos: pos}
}
