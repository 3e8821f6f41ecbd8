package serialbin

// conditionValue reads the little-endian unsigned value of a condition's
// governing field out of inst.
func conditionValue(inst Instance, c Condition) uint64 {
	b := inst.Block(c.SourceOffset, c.Size)
	var v uint64
	n := len(b)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

// evalConditionsEager computes every condition in script against inst up
// front, in index order. This is always safe because a condition's
// Parent index, by construction (spec §4.3.1/§9), never refers forward.
// Writers use this: the source instance is fully populated and stable
// (spec §4.3.3).
func evalConditionsEager(script *Script, inst Instance) []bool {
	vals := make([]bool, len(script.Conditions))
	for i, c := range script.Conditions {
		ok := containsUint64(c.Allowed, conditionValue(inst, c))
		if c.Parent != NoCondition {
			ok = ok && vals[c.Parent]
		}
		vals[i] = ok
	}
	return vals
}

// lazyConditionState is tri-state per-condition evaluation memo for
// readers (spec §4.3.3): conditions are evaluated lazily on first visit,
// since the instance bytes a condition depends on are only guaranteed
// present once the corresponding (always-earlier) command has run.
type lazyConditionState struct {
	known []bool
	value []bool
}

func newLazyConditionState(n int) *lazyConditionState {
	return &lazyConditionState{known: make([]bool, n), value: make([]bool, n)}
}

func (s *lazyConditionState) eval(script *Script, inst Instance, idx int) bool {
	if idx == NoCondition {
		return true
	}
	if s.known[idx] {
		return s.value[idx]
	}
	c := script.Conditions[idx]
	parentOK := true
	if c.Parent != NoCondition {
		parentOK = s.eval(script, inst, c.Parent)
	}
	ok := parentOK && containsUint64(c.Allowed, conditionValue(inst, c))
	s.known[idx] = true
	s.value[idx] = ok
	return ok
}
