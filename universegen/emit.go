package universegen

import (
	"fmt"
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// emitCursor is the pass-2 walker. Unlike scanCursor it tracks full block
// depth and the open-query stack, since closing boilerplate depends on
// exactly which queries were opened at the depth a `}` just closed (spec
// §4.2.3).
type emitCursor struct {
	s      *scanner
	states map[string]*ScannedState
	ps     ProcessState
	out    strings.Builder
}

// Emit implements pass 2 (spec §4.2.1, §4.2.3, §4.2.5): it re-walks the
// same buffer from offset 0, copying ordinary text through untouched and
// expanding every KAN_UP_* macro using the query inventory Scan built.
func Emit(src []byte, path string, states map[string]*ScannedState) (string, error) {
	c := &emitCursor{s: newScanner(src, path), states: states}

	for !c.s.AtEOF() {
		b, _ := c.s.Peek()
		switch {
		case b == '{':
			c.s.Advance()
			c.ps.Blocks++
			c.ps.ExpectsNewBlock = false
			c.out.WriteByte('{')
		case b == '}':
			c.s.Advance()
			if err := c.closeBlock(); err != nil {
				return "", err
			}
		case isIdentStartByte(b):
			ident := c.s.identAt()
			if h, ok := emitMacros[ident]; ok {
				for range ident {
					c.s.Advance()
				}
				if err := h(c); err != nil {
					return "", err
				}
			} else {
				for range ident {
					r, _ := c.s.Advance()
					c.out.WriteByte(r)
				}
			}
		default:
			r, _ := c.s.Advance()
			c.out.WriteByte(r)
		}
	}
	return c.out.String(), nil
}

func (c *emitCursor) line(text string) {
	fmt.Fprintf(&c.out, "#line %d %q\n", c.s.line, c.s.path)
	c.out.WriteString(text)
}

func (c *emitCursor) readArgs(n int) ([]string, diag.Position, error) {
	if b, ok := c.s.Peek(); !ok || b != '(' {
		return nil, c.s.Pos(), diag.Errorf(c.s.Pos(), "expected '(' after macro name")
	}
	c.s.Advance()
	args, pos, err := readParenArgs(c.s)
	if err != nil {
		return nil, pos, err
	}
	if n >= 0 && len(args) != n {
		return nil, pos, diag.Errorf(pos, "macro expects %d arguments, got %d", n, len(args))
	}
	skipOptionalSemicolon(c.s)
	return args, pos, nil
}

// closeBlock runs on every literal '}': it pops every query whose
// BlocksAtOpen equals the post-decrement depth, emits their closing
// boilerplate, then the brace itself, then (for the single case where the
// last popped node is an iteration query) that query's while-loop tail.
func (c *emitCursor) closeBlock() error {
	c.ps.Blocks--
	newDepth := c.ps.Blocks

	var popped []*QueryStackNode
	for c.ps.StackTop != nil && c.ps.StackTop.BlocksAtOpen == newDepth {
		popped = append(popped, c.ps.StackTop)
		c.ps.StackTop = c.ps.StackTop.Previous
	}

	if len(popped) > 1 {
		for _, n := range popped {
			if !n.Type.isSingleton() {
				return diag.Errorf(c.s.Pos(), "multiple queries sharing one block must all be singleton queries")
			}
		}
	}

	for _, n := range popped {
		if n.Type.isIterationQuery() {
			c.out.WriteString(closeCursorBody(n.Name, n.Type))
		} else {
			c.out.WriteString(closeSimple(n.Name, n.Type))
		}
	}

	c.out.WriteByte('}')

	if len(popped) > 0 {
		last := popped[len(popped)-1]
		if last.Type.isIterationQuery() {
			c.out.WriteString(closeCursorTail(last.Name, last.Type))
		}
	}
	return nil
}

type emitHandler func(*emitCursor) error

var emitMacros map[string]emitHandler

func init() {
	emitMacros = map[string]emitHandler{
		"KAN_UP_GENERATE_STATE_QUERIES": emitGenerateStateQueries,
		"KAN_UP_BIND_STATE":             emitBindState,

		"KAN_UP_SINGLETON_READ":  emitSimple(qSingletonRead, catSingletonRead),
		"KAN_UP_SINGLETON_WRITE": emitSimple(qSingletonWrite, catSingletonWrite),
		"KAN_UP_INDEXED_INSERT":  emitSimple(qIndexedInsert, catInsert),
		"KAN_UP_EVENT_INSERT":    emitSimple(qEventInsert, catEventInsert),

		"KAN_UP_SEQUENCE_READ":   emitSequence(qSequenceRead, catSequenceRead),
		"KAN_UP_SEQUENCE_UPDATE": emitSequence(qSequenceUpdate, catSequenceUpdate),
		"KAN_UP_SEQUENCE_DELETE": emitSequence(qSequenceDelete, catSequenceDelete),
		"KAN_UP_SEQUENCE_WRITE":  emitSequence(qSequenceWrite, catSequenceWrite),
		"KAN_UP_EVENT_FETCH":     emitEventFetch,

		"KAN_UP_VALUE_READ":   emitValue(qValueRead, catValueRead),
		"KAN_UP_VALUE_UPDATE": emitValue(qValueUpdate, catValueUpdate),
		"KAN_UP_VALUE_DELETE": emitValue(qValueDelete, catValueDelete),
		"KAN_UP_VALUE_WRITE":  emitValue(qValueWrite, catValueWrite),

		"KAN_UP_SIGNAL_READ":   emitSignal(qSignalRead, catSignalRead),
		"KAN_UP_SIGNAL_UPDATE": emitSignal(qSignalUpdate, catSignalUpdate),
		"KAN_UP_SIGNAL_DELETE": emitSignal(qSignalDelete, catSignalDelete),
		"KAN_UP_SIGNAL_WRITE":  emitSignal(qSignalWrite, catSignalWrite),

		"KAN_UP_INTERVAL_ASC_READ":    emitInterval(qIntervalAscendingRead, catIntervalRead),
		"KAN_UP_INTERVAL_ASC_UPDATE":  emitInterval(qIntervalAscendingUpdate, catIntervalUpdate),
		"KAN_UP_INTERVAL_ASC_DELETE":  emitInterval(qIntervalAscendingDelete, catIntervalDelete),
		"KAN_UP_INTERVAL_ASC_WRITE":   emitInterval(qIntervalAscendingWrite, catIntervalWrite),
		"KAN_UP_INTERVAL_DESC_READ":   emitInterval(qIntervalDescendingRead, catIntervalRead),
		"KAN_UP_INTERVAL_DESC_UPDATE": emitInterval(qIntervalDescendingUpdate, catIntervalUpdate),
		"KAN_UP_INTERVAL_DESC_DELETE": emitInterval(qIntervalDescendingDelete, catIntervalDelete),
		"KAN_UP_INTERVAL_DESC_WRITE":  emitInterval(qIntervalDescendingWrite, catIntervalWrite),

		"KAN_UP_QUERY_BREAK":       emitQueryBreakContinue("break"),
		"KAN_UP_QUERY_CONTINUE":    emitQueryBreakContinue("continue"),
		"KAN_UP_QUERY_RETURN_VOID": emitQueryReturnVoid,
		"KAN_UP_MUTATOR_RETURN":    emitMutatorReturn,
		"KAN_UP_QUERY_RETURN_VALUE": emitQueryReturnValue,
		"KAN_UP_ACCESS_ESCAPE":     emitAccessEscape,
		"KAN_UP_ACCESS_DELETE":     emitAccessDelete,
	}
}

func emitGenerateStateQueries(c *emitCursor) error {
	args, _, err := c.readArgs(1)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	st, ok := c.states[name]
	if !ok {
		return diag.Errorf(c.s.Pos(), "state %q was never scanned", name)
	}

	var b strings.Builder
	for _, cat := range categoryOrder {
		for _, typeName := range st.simpleList[cat] {
			fmt.Fprintf(&b, "%s %s;\n", categoryFieldType[cat], simpleFieldName(cat, typeName))
			fmt.Fprintf(&b, "#line %d %q\n", c.s.line, c.s.path)
		}
		for _, key := range st.fieldList[cat] {
			name := valueFieldName(cat, key)
			if cat == catSignalRead || cat == catSignalUpdate || cat == catSignalDelete || cat == catSignalWrite {
				name = signalFieldName(cat, key)
			}
			fmt.Fprintf(&b, "%s %s;\n", categoryFieldType[cat], name)
			fmt.Fprintf(&b, "#line %d %q\n", c.s.line, c.s.path)
		}
	}
	c.line(b.String())
	return nil
}

func emitBindState(c *emitCursor) error {
	args, _, err := c.readArgs(2)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	if _, ok := c.states[name]; !ok {
		return diag.Errorf(c.s.Pos(), "state %q was never scanned", name)
	}
	c.ps.BoundStateName = name
	c.ps.BoundStatePath = strings.TrimSpace(args[1])
	return nil
}

func emitSimple(q queryType, cat category) emitHandler {
	return func(c *emitCursor) error {
		if c.ps.ExpectsNewBlock {
			return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
		}
		args, _, err := c.readArgs(2)
		if err != nil {
			return err
		}
		n, typeName := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
		field := simpleFieldName(cat, typeName)
		c.line(openSimple(n, typeName, field, c.ps.BoundStatePath, q))
		c.ps.push(n, q)
		return nil
	}
}

func emitSequence(q queryType, cat category) emitHandler {
	return func(c *emitCursor) error {
		if c.ps.ExpectsNewBlock {
			return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
		}
		args, _, err := c.readArgs(2)
		if err != nil {
			return err
		}
		n, typeName := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
		field := simpleFieldName(cat, typeName)
		c.line(openCursor(n, typeName, field, c.ps.BoundStatePath, q, ""))
		c.ps.push(n, q)
		return nil
	}
}

func emitEventFetch(c *emitCursor) error {
	if c.ps.ExpectsNewBlock {
		return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
	}
	args, _, err := c.readArgs(2)
	if err != nil {
		return err
	}
	n, typeName := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	field := simpleFieldName(catEventFetch, typeName)
	c.line(openCursor(n, typeName, field, c.ps.BoundStatePath, qEventFetch, ""))
	c.ps.push(n, qEventFetch)
	return nil
}

func emitValue(q queryType, cat category) emitHandler {
	return func(c *emitCursor) error {
		if c.ps.ExpectsNewBlock {
			return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
		}
		args, _, err := c.readArgs(4)
		if err != nil {
			return err
		}
		n, typeName, path, arg := strings.TrimSpace(args[0]), strings.TrimSpace(args[1]), strings.TrimSpace(args[2]), strings.TrimSpace(args[3])
		key := fieldQueryKey{typeName: typeName, fieldPath: path}
		field := valueFieldName(cat, key)
		c.line(openCursor(n, typeName, field, c.ps.BoundStatePath, q, ", "+arg))
		c.ps.push(n, q)
		return nil
	}
}

func emitSignal(q queryType, cat category) emitHandler {
	return func(c *emitCursor) error {
		if c.ps.ExpectsNewBlock {
			return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
		}
		args, _, err := c.readArgs(4)
		if err != nil {
			return err
		}
		n, typeName, path, lit := strings.TrimSpace(args[0]), strings.TrimSpace(args[1]), strings.TrimSpace(args[2]), strings.TrimSpace(args[3])
		key := fieldQueryKey{typeName: typeName, fieldPath: path, signalValue: lit}
		field := signalFieldName(cat, key)
		c.line(openCursor(n, typeName, field, c.ps.BoundStatePath, q, ""))
		c.ps.push(n, q)
		return nil
	}
}

func emitInterval(q queryType, cat category) emitHandler {
	return func(c *emitCursor) error {
		if c.ps.ExpectsNewBlock {
			return diag.Errorf(c.s.Pos(), "a new query cannot open before the previous iteration query's block")
		}
		args, _, err := c.readArgs(5)
		if err != nil {
			return err
		}
		n, typeName, path := strings.TrimSpace(args[0]), strings.TrimSpace(args[1]), strings.TrimSpace(args[2])
		min, max := strings.TrimSpace(args[3]), strings.TrimSpace(args[4])
		key := fieldQueryKey{typeName: typeName, fieldPath: path}
		field := valueFieldName(cat, key)
		c.line(openCursor(n, typeName, field, c.ps.BoundStatePath, q, fmt.Sprintf(", %s, %s", min, max)))
		c.ps.push(n, q)
		return nil
	}
}

func emitQueryBreakContinue(keyword string) emitHandler {
	return func(c *emitCursor) error {
		skipOptionalEmptyParens(c.s)
		skipOptionalSemicolon(c.s)
		n := c.ps.StackTop
		if n == nil {
			return diag.Errorf(c.s.Pos(), "%s used with no open query", keyword)
		}
		var b strings.Builder
		if n.Type.isIterationQuery() {
			b.WriteString(closeCursorBody(n.Name, n.Type))
			if keyword == "break" {
				fmt.Fprintf(&b, "kan_repository_indexed_%s_%s%s_cursor_close (&%s_cursor);\n",
					n.Type.indexedKind(), n.Type.directionDropIn(), n.Type.accessWord(), n.Name)
			}
		} else {
			b.WriteString(closeSimple(n.Name, n.Type))
		}
		fmt.Fprintf(&b, "%s;\n", keyword)
		c.line(b.String())
		return nil
	}
}

// closeEntireStack renders the close code for every open query, innermost
// first, ahead of a `return`/`break` that exits the whole mutator.
func (c *emitCursor) closeEntireStack() string {
	var b strings.Builder
	for n := c.ps.StackTop; n != nil; n = n.Previous {
		if n.Type.isIterationQuery() {
			b.WriteString(closeCursorBody(n.Name, n.Type))
			fmt.Fprintf(&b, "kan_repository_indexed_%s_%s%s_cursor_close (&%s_cursor);\n",
				n.Type.indexedKind(), n.Type.directionDropIn(), n.Type.accessWord(), n.Name)
		} else {
			b.WriteString(closeSimple(n.Name, n.Type))
		}
	}
	return b.String()
}

func emitQueryReturnVoid(c *emitCursor) error {
	skipOptionalEmptyParens(c.s)
	skipOptionalSemicolon(c.s)
	c.line(c.closeEntireStack() + "return;\n")
	return nil
}

func emitMutatorReturn(c *emitCursor) error {
	skipOptionalEmptyParens(c.s)
	skipOptionalSemicolon(c.s)
	c.line(c.closeEntireStack() + "kan_cpu_job_release (job);\nreturn;\n")
	return nil
}

func emitQueryReturnValue(c *emitCursor) error {
	args, _, err := c.readArgs(2)
	if err != nil {
		return err
	}
	typeName, expr := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	var b strings.Builder
	fmt.Fprintf(&b, "%s query_return_value = %s;\n", typeName, expr)
	b.WriteString(c.closeEntireStack())
	b.WriteString("return query_return_value;\n")
	c.line(b.String())
	return nil
}

func emitAccessEscape(c *emitCursor) error {
	args, pos, err := c.readArgs(2)
	if err != nil {
		return err
	}
	dst, n := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	node := c.ps.findOnStack(n)
	if node == nil {
		return diag.Errorf(pos, "KAN_UP_ACCESS_ESCAPE refers to query %q which is not open", n)
	}
	c.line(fmt.Sprintf("%s = %s_access;\n%s_access_expired = KAN_TRUE;\n", dst, n, n))
	return nil
}

func emitAccessDelete(c *emitCursor) error {
	args, pos, err := c.readArgs(1)
	if err != nil {
		return err
	}
	n := strings.TrimSpace(args[0])
	node := c.ps.findOnStack(n)
	if node == nil {
		return diag.Errorf(pos, "KAN_UP_ACCESS_DELETE refers to query %q which is not open", n)
	}
	var kind string
	if node.Type.isSingleton() {
		kind = fmt.Sprintf("kan_repository_singleton_%s_access_delete (%s_access)", node.Type.accessWord(), n)
	} else {
		kind = fmt.Sprintf("kan_repository_indexed_%s_%s_access_delete (%s_access)", node.Type.indexedKind(), node.Type.accessWord(), n)
	}
	c.line(fmt.Sprintf("%s;\n%s_access_expired = KAN_TRUE;\n", kind, n))
	return nil
}
