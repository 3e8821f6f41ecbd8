package universegen

import (
	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// scanner walks an in-memory buffer twice (scan pass, then emit pass),
// tracking line/column the way reflectgen.Tokenizer does. Unlike the
// reflection preprocessor's inputs (whole translation units potentially
// many megabytes), a single annotated unit is small enough to hold
// entirely in memory, and the two-pass pipeline re-reads it from offset 0
// (spec §4.2.1) which a plain slice makes trivial.
type scanner struct {
	buf  []byte
	path string
	pos  int
	line int
	col  int
}

func newScanner(buf []byte, path string) *scanner {
	return &scanner{buf: buf, path: path, line: 1, col: 1}
}

func (s *scanner) AtEOF() bool { return s.pos >= len(s.buf) }

func (s *scanner) Peek() (byte, bool) {
	if s.AtEOF() {
		return 0, false
	}
	return s.buf[s.pos], true
}

func (s *scanner) PeekAt(n int) (byte, bool) {
	if s.pos+n >= len(s.buf) {
		return 0, false
	}
	return s.buf[s.pos+n], true
}

func (s *scanner) Advance() (byte, bool) {
	if s.AtEOF() {
		return 0, false
	}
	b := s.buf[s.pos]
	s.pos++
	if b == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return b, true
}

func (s *scanner) Pos() diag.Position {
	return diag.Position{Path: s.path, Line: s.line, Column: s.col}
}

// reset rewinds the scanner to the start of the buffer for the second
// pass, without losing the path.
func (s *scanner) reset() {
	s.pos, s.line, s.col = 0, 1, 1
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9')
}

// identAt reads the identifier starting at the current position (caller
// must have confirmed isIdentStartByte at pos) without consuming it,
// returning the identifier text.
func (s *scanner) identAt() string {
	start := s.pos
	for start < len(s.buf) && isIdentContByte(s.buf[start]) {
		start++
	}
	return string(s.buf[s.pos:start])
}
