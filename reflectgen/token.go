package reflectgen

import (
	"io"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// refillSize is the amount of fresh input pulled into the ring buffer on
// every refill. It is generous enough that a single pragma or declaration
// almost never spans more than one refill.
const refillSize = 64 * 1024

// Mark is a resumable position inside a Tokenizer's input stream, returned
// by Tokenizer.Mark and consumed by Tokenizer.Restore.
type Mark struct {
	offset int
	line   int
	column int
}

// Tokenizer is a byte-oriented scanner backed by a single refillable ring
// buffer. Unlike a scanner that holds the whole input in memory (as
// expr/partiql.scanner does for already-small query strings), the
// reflection preprocessor's inputs are whole translation units, so bytes
// are paged in on demand.
//
// Positions are tracked as absolute stream offsets rather than raw slice
// indices specifically so that a buffer shift never invalidates an
// outstanding Mark: "rebasing a live position tag by the shift" becomes
// "recompute bufIndex = offset - t.base", which falls out of the sums
// below for free.
type Tokenizer struct {
	r    io.Reader
	path string

	buf  []byte // window of the stream currently resident in memory
	base int    // absolute stream offset of buf[0]

	offset int // absolute offset of the read cursor
	line   int
	column int

	eof     bool // true once r has returned io.EOF and buf is exhausted
	readErr error

	// oldest outstanding mark; refill() never discards bytes before it.
	outstanding []int
}

// NewTokenizer wraps r, attributing diagnostics to path.
func NewTokenizer(r io.Reader, path string) *Tokenizer {
	return &Tokenizer{
		r:      r,
		path:   path,
		line:   1,
		column: 1,
	}
}

func (t *Tokenizer) bufIndex() int { return t.offset - t.base }

// refill shifts unconsumed bytes (from the oldest outstanding mark, or the
// read cursor if there are none) to the head of the buffer and fills the
// tail from the stream.
func (t *Tokenizer) refill() {
	if t.eof {
		return
	}

	keepFrom := t.offset
	for _, m := range t.outstanding {
		if m < keepFrom {
			keepFrom = m
		}
	}
	shift := keepFrom - t.base
	if shift > 0 {
		copy(t.buf, t.buf[shift:])
		t.buf = t.buf[:len(t.buf)-shift]
		t.base += shift
	}

	grow := make([]byte, refillSize)
	n, err := io.ReadFull(t.r, grow)
	if n > 0 {
		t.buf = append(t.buf, grow[:n]...)
	}
	if err != nil {
		// io.ReadFull returns ErrUnexpectedEOF on a short final read;
		// both that and io.EOF mean "no more input after this".
		t.eof = true
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			t.readErr = err
		}
	}
}

// ensure makes sure at least one more byte is available at the read
// cursor, refilling as needed. Returns false at true end of input.
func (t *Tokenizer) ensure() bool {
	for t.bufIndex() >= len(t.buf) {
		if t.eof {
			return false
		}
		t.refill()
	}
	return true
}

// Peek returns the byte at the read cursor without consuming it, and false
// at end of input.
func (t *Tokenizer) Peek() (byte, bool) {
	if !t.ensure() {
		return 0, false
	}
	return t.buf[t.bufIndex()], true
}

// PeekAt returns the byte n positions ahead of the read cursor.
func (t *Tokenizer) PeekAt(n int) (byte, bool) {
	for {
		idx := t.bufIndex() + n
		if idx < len(t.buf) {
			return t.buf[idx], true
		}
		if t.eof {
			return 0, false
		}
		t.refill()
	}
}

// Advance consumes and returns one byte, maintaining line and column
// (treating '\n' as a line break). End-of-input is sticky: once reached,
// Advance keeps returning (0, false).
func (t *Tokenizer) Advance() (byte, bool) {
	if !t.ensure() {
		return 0, false
	}
	b := t.buf[t.bufIndex()]
	t.offset++
	if b == '\n' {
		t.line++
		t.column = 1
	} else {
		t.column++
	}
	return b, true
}

// AtEOF reports whether the tokenizer has observed end of input at the
// current read cursor.
func (t *Tokenizer) AtEOF() bool {
	return !t.ensure()
}

// Mark saves the current position so scanning can resume from it later via
// Restore. Marks nest; Restore can be called on any previously returned
// Mark as long as it has not been released by a later Restore that moved
// the cursor past its buffered window being discarded.
func (t *Tokenizer) Mark() Mark {
	m := Mark{offset: t.offset, line: t.line, column: t.column}
	t.outstanding = append(t.outstanding, t.offset)
	return m
}

// Restore rewinds the tokenizer to a previously obtained Mark and releases
// it (and any marks taken after it).
func (t *Tokenizer) Restore(m Mark) {
	t.offset = m.offset
	t.line = m.line
	t.column = m.column
	for i, o := range t.outstanding {
		if o == m.offset {
			t.outstanding = t.outstanding[:i]
			break
		}
	}
}

// Release drops a Mark without rewinding to it, once it is no longer
// needed for backtracking.
func (t *Tokenizer) Release(m Mark) {
	for i, o := range t.outstanding {
		if o == m.offset {
			t.outstanding = append(t.outstanding[:i], t.outstanding[i+1:]...)
			return
		}
	}
}

// Pos returns the current diagnostic position.
func (t *Tokenizer) Pos() diag.Position {
	return diag.Position{Path: t.path, Line: t.line, Column: t.column}
}

// Err returns any I/O error observed while refilling, distinct from plain
// end of input.
func (t *Tokenizer) Err() error {
	return t.readErr
}
