package universegen

import (
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// readParenArgs consumes a macro's argument list starting right after its
// opening '(' (already consumed by the caller) through the matching ')',
// splitting on top-level commas and trimming surrounding whitespace.
// Nested parens/brackets/braces and quoted strings are tracked so that an
// expression argument such as "foo(a, b)" is not split incorrectly.
func readParenArgs(s *scanner) ([]string, diag.Position, error) {
	var args []string
	var cur strings.Builder
	depth := 0
	closePos := s.Pos()

	flush := func() {
		args = append(args, strings.TrimSpace(cur.String()))
		cur.Reset()
	}

	for {
		b, ok := s.Advance()
		if !ok {
			return nil, closePos, diag.Errorf(s.Pos(), "unexpected end of input inside macro argument list")
		}
		closePos = s.Pos()

		switch b {
		case '(', '[', '{':
			depth++
			cur.WriteByte(b)
		case ')':
			if depth == 0 {
				flush()
				return args, closePos, nil
			}
			depth--
			cur.WriteByte(b)
		case ']', '}':
			depth--
			cur.WriteByte(b)
		case ',':
			if depth == 0 {
				flush()
				continue
			}
			cur.WriteByte(b)
		case '"', '\'':
			cur.WriteByte(b)
			quote := b
			for {
				c, ok := s.Advance()
				if !ok {
					return nil, closePos, diag.Errorf(s.Pos(), "unterminated string literal inside macro argument list")
				}
				cur.WriteByte(c)
				if c == '\\' {
					if c2, ok := s.Advance(); ok {
						cur.WriteByte(c2)
					}
					continue
				}
				if c == quote {
					break
				}
			}
		default:
			cur.WriteByte(b)
		}
	}
}

// skipOptionalEmptyParens consumes an immediately-following "()" with only
// whitespace inside, for the argument-less macros whose parse shape is
// "()?;" (spec §4.2.2): KAN_UP_QUERY_BREAK/CONTINUE/RETURN_VOID and
// KAN_UP_MUTATOR_RETURN may be written with or without the parens.
func skipOptionalEmptyParens(s *scanner) {
	save := *s
	for {
		b, ok := s.Peek()
		if !ok || !isSpaceByte(b) {
			break
		}
		s.Advance()
	}
	if b, ok := s.Peek(); !ok || b != '(' {
		*s = save
		return
	}
	s.Advance()
	for {
		b, ok := s.Peek()
		if !ok || !isSpaceByte(b) {
			break
		}
		s.Advance()
	}
	if b, ok := s.Peek(); ok && b == ')' {
		s.Advance()
		return
	}
	*s = save
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// skipOptionalSemicolon consumes a single trailing ';' if present,
// tolerating macros invoked either as statements or as bare forms.
func skipOptionalSemicolon(s *scanner) {
	for {
		b, ok := s.Peek()
		if !ok || !isSpaceByte(b) {
			break
		}
		s.Advance()
	}
	if b, ok := s.Peek(); ok && b == ';' {
		s.Advance()
	}
}
