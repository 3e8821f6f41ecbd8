package universegen

import (
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// scanCursor is the pass-1 walker. Unlike ProcessState (emit phase), it
// tracks no block depth and no query stack: the original's scan handlers
// only ever consult and mutate the single ExpectsNewBlock bit via
// ensure_block_requirements_are_met, never a brace counter.
type scanCursor struct {
	s               *scanner
	states          map[string]*ScannedState
	boundStateName  string
	expectsNewBlock bool
}

// Scan implements pass 1 (spec §4.2.1): it builds ScannedState records for
// every KAN_UP_GENERATE_STATE_QUERIES / KAN_UP_BIND_STATE name and verifies
// that every iteration-opening macro is immediately followed by a `{`
// before another query macro may open, without emitting any output.
func Scan(src []byte, path string) (map[string]*ScannedState, error) {
	c := &scanCursor{s: newScanner(src, path), states: make(map[string]*ScannedState)}

	for !c.s.AtEOF() {
		b, _ := c.s.Peek()
		switch {
		case b == '{':
			c.s.Advance()
			c.expectsNewBlock = false
		case isIdentStartByte(b):
			ident := c.s.identAt()
			for range ident {
				c.s.Advance()
			}
			if h, ok := scanMacros[ident]; ok {
				if err := h(c); err != nil {
					return nil, err
				}
			}
		default:
			c.s.Advance()
		}
	}
	return c.states, nil
}

func (c *scanCursor) ensureBlockReady() error {
	if c.expectsNewBlock {
		return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
	}
	return nil
}

func (c *scanCursor) currentState() (*ScannedState, error) {
	st, ok := c.states[c.boundStateName]
	if !ok {
		return nil, diag.Errorf(c.s.Pos(), "query macro used with no KAN_UP_BIND_STATE in scope")
	}
	return st, nil
}

func (c *scanCursor) readArgs(n int) ([]string, error) {
	if b, ok := c.s.Peek(); !ok || b != '(' {
		return nil, diag.Errorf(c.s.Pos(), "expected '(' after macro name")
	}
	c.s.Advance()
	args, pos, err := readParenArgs(c.s)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(args) != n {
		return nil, diag.Errorf(pos, "macro expects %d arguments, got %d", n, len(args))
	}
	skipOptionalSemicolon(c.s)
	return args, nil
}

type scanHandler func(*scanCursor) error

var scanMacros map[string]scanHandler

func init() {
	scanMacros = map[string]scanHandler{
		"KAN_UP_GENERATE_STATE_QUERIES": scanGenerateStateQueries,
		"KAN_UP_BIND_STATE":             scanBindState,

		"KAN_UP_SINGLETON_READ":  scanSimple(catSingletonRead),
		"KAN_UP_SINGLETON_WRITE": scanSimple(catSingletonWrite),
		"KAN_UP_INDEXED_INSERT":  scanSimpleBlocking(catInsert),

		"KAN_UP_SEQUENCE_READ":   scanSimpleBlocking(catSequenceRead),
		"KAN_UP_SEQUENCE_UPDATE": scanSimpleBlocking(catSequenceUpdate),
		"KAN_UP_SEQUENCE_DELETE": scanSimpleBlocking(catSequenceDelete),
		"KAN_UP_SEQUENCE_WRITE":  scanSimpleBlocking(catSequenceWrite),

		"KAN_UP_VALUE_READ":   scanFieldQuery(catValueRead, false, 4),
		"KAN_UP_VALUE_UPDATE": scanFieldQuery(catValueUpdate, false, 4),
		"KAN_UP_VALUE_DELETE": scanFieldQuery(catValueDelete, false, 4),
		"KAN_UP_VALUE_WRITE":  scanFieldQuery(catValueWrite, false, 4),

		"KAN_UP_SIGNAL_READ":   scanFieldQuery(catSignalRead, true, 4),
		"KAN_UP_SIGNAL_UPDATE": scanFieldQuery(catSignalUpdate, true, 4),
		"KAN_UP_SIGNAL_DELETE": scanFieldQuery(catSignalDelete, true, 4),
		"KAN_UP_SIGNAL_WRITE":  scanFieldQuery(catSignalWrite, true, 4),

		"KAN_UP_INTERVAL_ASC_READ":    scanFieldQuery(catIntervalRead, false, 5),
		"KAN_UP_INTERVAL_ASC_UPDATE":  scanFieldQuery(catIntervalUpdate, false, 5),
		"KAN_UP_INTERVAL_ASC_DELETE":  scanFieldQuery(catIntervalDelete, false, 5),
		"KAN_UP_INTERVAL_ASC_WRITE":   scanFieldQuery(catIntervalWrite, false, 5),
		"KAN_UP_INTERVAL_DESC_READ":   scanFieldQuery(catIntervalRead, false, 5),
		"KAN_UP_INTERVAL_DESC_UPDATE": scanFieldQuery(catIntervalUpdate, false, 5),
		"KAN_UP_INTERVAL_DESC_DELETE": scanFieldQuery(catIntervalDelete, false, 5),
		"KAN_UP_INTERVAL_DESC_WRITE":  scanFieldQuery(catIntervalWrite, false, 5),

		"KAN_UP_EVENT_INSERT": scanSimpleBlocking(catEventInsert),
		"KAN_UP_EVENT_FETCH":  scanSimpleBlocking(catEventFetch),

		"KAN_UP_QUERY_BREAK":       scanNoOp,
		"KAN_UP_QUERY_CONTINUE":    scanNoOp,
		"KAN_UP_QUERY_RETURN_VOID": scanNoOp,
		"KAN_UP_MUTATOR_RETURN":    scanNoOp,
		"KAN_UP_QUERY_RETURN_VALUE": func(c *scanCursor) error {
			_, err := c.readArgs(2)
			return err
		},
		"KAN_UP_ACCESS_ESCAPE": func(c *scanCursor) error {
			_, err := c.readArgs(2)
			return err
		},
		"KAN_UP_ACCESS_DELETE": func(c *scanCursor) error {
			_, err := c.readArgs(1)
			return err
		},
	}
}

func scanGenerateStateQueries(c *scanCursor) error {
	args, err := c.readArgs(1)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	if _, exists := c.states[name]; exists {
		return diag.Errorf(c.s.Pos(), "state %q is already generated", name)
	}
	c.states[name] = newScannedState(name)
	return nil
}

func scanBindState(c *scanCursor) error {
	args, err := c.readArgs(2)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	if _, exists := c.states[name]; !exists {
		c.states[name] = newScannedState(name)
	}
	c.boundStateName = name
	return nil
}

func scanSimple(cat category) scanHandler {
	return func(c *scanCursor) error {
		if err := c.ensureBlockReady(); err != nil {
			return err
		}
		args, err := c.readArgs(2)
		if err != nil {
			return err
		}
		st, err := c.currentState()
		if err != nil {
			return err
		}
		st.addSimple(cat, strings.TrimSpace(args[1]))
		return nil
	}
}

func scanSimpleBlocking(cat category) scanHandler {
	return func(c *scanCursor) error {
		if err := c.ensureBlockReady(); err != nil {
			return err
		}
		args, err := c.readArgs(2)
		if err != nil {
			return err
		}
		st, err := c.currentState()
		if err != nil {
			return err
		}
		st.addSimple(cat, strings.TrimSpace(args[1]))
		c.expectsNewBlock = true
		return nil
	}
}

func scanFieldQuery(cat category, signal bool, n int) scanHandler {
	return func(c *scanCursor) error {
		if err := c.ensureBlockReady(); err != nil {
			return err
		}
		args, err := c.readArgs(n)
		if err != nil {
			return err
		}
		st, err := c.currentState()
		if err != nil {
			return err
		}
		key := fieldQueryKey{typeName: strings.TrimSpace(args[1]), fieldPath: strings.TrimSpace(args[2])}
		if signal {
			key.signalValue = strings.TrimSpace(args[3])
		}
		if len(key.fieldPath) > maxFieldPathLength {
			return diag.Errorf(c.s.Pos(), "field path %q exceeds the maximum length", key.fieldPath)
		}
		st.addFieldQuery(cat, key)
		c.expectsNewBlock = true
		return nil
	}
}

func scanNoOp(c *scanCursor) error {
	skipOptionalEmptyParens(c.s)
	skipOptionalSemicolon(c.s)
	return nil
}
