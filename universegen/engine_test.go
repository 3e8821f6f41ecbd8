package universegen

import (
	"strings"
	"testing"
)

func runUnit(t *testing.T, src string) string {
	t.Helper()
	b := []byte(src)
	states, err := Scan(b, "unit.c")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, err := Emit(b, "unit.c", states)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return out
}

// Scenario 4 (spec §8): one read and one write query field, each exactly
// once, in the generated state's field block.
func TestGenerateStateQueriesReadAndWrite(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_SINGLETON_READ(a, TypeA)
    {
        KAN_UP_SINGLETON_WRITE(b, TypeB)
        {
        }
    }
}
`
	out := runUnit(t, src)
	wantRead := "kan_repository_singleton_read_query_t read__TypeA;"
	wantWrite := "kan_repository_singleton_write_query_t write__TypeB;"
	if strings.Count(out, wantRead) != 1 {
		t.Errorf("expected exactly one %q, got output:\n%s", wantRead, out)
	}
	if strings.Count(out, wantWrite) != 1 {
		t.Errorf("expected exactly one %q, got output:\n%s", wantWrite, out)
	}
}

// Scenario 5 (spec §8): dotted field path mangling.
func TestValueQueryMangling(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_VALUE_READ(it, Widget, owner.id, &owner_id)
    {
    }
}
`
	out := runUnit(t, src)
	if !strings.Contains(out, "read_value__Widget__owner__id") {
		t.Errorf("expected mangled field name read_value__Widget__owner__id in output:\n%s", out)
	}
}

// Balanced braces: total '{' consumed equals total '}' consumed on a
// successful run, since every literal brace is copied through (closeBlock
// re-emits each '}') and every brace the query templates add is closed by
// the templates' own closing text (spec §8).
func TestBalancedBraces(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_SEQUENCE_READ(it, TypeA)
    {
        if (it->value > 0)
        {
            KAN_UP_QUERY_BREAK;
        }
    }
}
`
	out := runUnit(t, src)
	opens := strings.Count(out, "{")
	closes := strings.Count(out, "}")
	if opens != closes {
		t.Errorf("unbalanced braces: %d opens, %d closes, output:\n%s", opens, closes, out)
	}
}

// Duplicate (type, path) queries collapse to a single field.
func TestDuplicateValueQueryCollapses(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_VALUE_READ(it, Widget, owner.id, &owner_id)
    {
    }
    KAN_UP_VALUE_READ(it2, Widget, owner.id, &owner_id)
    {
    }
}
`
	out := runUnit(t, src)
	if n := strings.Count(out, "read_value__Widget__owner__id;"); n != 1 {
		t.Errorf("expected query field declared exactly once, got %d, output:\n%s", n, out)
	}
}

// Sharing one block between a singleton and a non-singleton query is a
// fatal diagnostic (spec §4.2.3).
func TestMixedSharedBlockIsFatal(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_SINGLETON_READ(a, TypeA)
    KAN_UP_SEQUENCE_READ(it, TypeB)
    {
    }
}
`
	b := []byte(src)
	states, err := Scan(b, "unit.c")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := Emit(b, "unit.c", states); err == nil {
		t.Fatal("expected a fatal diagnostic for a shared block mixing singleton and iteration queries")
	}
}

// Two singleton queries may legally share one block.
func TestTwoSingletonsShareBlock(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_SINGLETON_READ(a, TypeA)
    KAN_UP_SINGLETON_WRITE(b, TypeB)
    {
    }
}
`
	out := runUnit(t, src)
	if !strings.Contains(out, "read__TypeA") || !strings.Contains(out, "write__TypeB") {
		t.Errorf("expected both singleton accesses to be emitted, output:\n%s", out)
	}
}

// Opening a new query before the previous iteration query's required block
// is a fatal diagnostic (ExpectsNewBlock, spec §3.2/§4.2.3).
func TestExpectsNewBlockViolation(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
void mutate (struct state_t *state)
{
    KAN_UP_BIND_STATE(state_t, state)
    KAN_UP_SEQUENCE_READ(it, TypeA)
    KAN_UP_SEQUENCE_READ(it2, TypeB)
    {
    }
}
`
	b := []byte(src)
	if _, err := Scan(b, "unit.c"); err == nil {
		t.Fatal("expected scan to reject a query opened before the previous iteration query's block")
	}
}

func TestDuplicateStateNameIsFatal(t *testing.T) {
	src := `
KAN_UP_GENERATE_STATE_QUERIES(state_t)
KAN_UP_GENERATE_STATE_QUERIES(state_t)
`
	if _, err := Scan([]byte(src), "unit.c"); err == nil {
		t.Fatal("expected scan to reject a state generated twice")
	}
}
