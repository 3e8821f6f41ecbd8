package universegen

// maxFieldPathLength bounds a dotted field path's length, mirroring the
// original's fixed-size KAN_UNIVERSE_PREPROCESSOR_TARGET_PATH_MAX_LENGTH
// buffer (spec §3.2: "Path length bounded by a compile-time constant").
const maxFieldPathLength = 256

// fieldQueryKey identifies a value/signal/interval query by the triple
// that must dedup identically: type name, dotted field path, and (for
// signals only) the signal literal.
type fieldQueryKey struct {
	typeName    string
	fieldPath   string
	signalValue string
}

// ScannedState is the per-state-struct tally built during the scan pass
// (spec §3.2). Each category is a dedup set with discovery-order
// preserved via a parallel slice, since KAN_UP_GENERATE_STATE_QUERIES must
// emit fields in first-use order within each category.
type ScannedState struct {
	Name string

	simpleSeen map[category]map[string]bool
	simpleList map[category][]string

	fieldSeen map[category]map[fieldQueryKey]bool
	fieldList map[category][]fieldQueryKey
}

func newScannedState(name string) *ScannedState {
	return &ScannedState{
		Name:       name,
		simpleSeen: make(map[category]map[string]bool),
		simpleList: make(map[category][]string),
		fieldSeen:  make(map[category]map[fieldQueryKey]bool),
		fieldList:  make(map[category][]fieldQueryKey),
	}
}

// addSimple records a type-keyed query (singleton/insert/sequence/event);
// returns false if it was already present.
func (s *ScannedState) addSimple(cat category, typeName string) bool {
	if s.simpleSeen[cat] == nil {
		s.simpleSeen[cat] = make(map[string]bool)
	}
	if s.simpleSeen[cat][typeName] {
		return false
	}
	s.simpleSeen[cat][typeName] = true
	s.simpleList[cat] = append(s.simpleList[cat], typeName)
	return true
}

// addFieldQuery records a (type, path[, signalValue])-keyed query
// (value/signal/interval); returns false if it was already present.
func (s *ScannedState) addFieldQuery(cat category, key fieldQueryKey) bool {
	if s.fieldSeen[cat] == nil {
		s.fieldSeen[cat] = make(map[fieldQueryKey]bool)
	}
	if s.fieldSeen[cat][key] {
		return false
	}
	s.fieldSeen[cat][key] = true
	s.fieldList[cat] = append(s.fieldList[cat], key)
	return true
}

// QueryStackNode models one open query's lexical nesting (spec §3.2).
type QueryStackNode struct {
	Previous     *QueryStackNode
	BlocksAtOpen int
	Name         string
	Type         queryType
}

// ProcessState is the emission-phase cursor (spec §3.2): the currently
// bound state, its brace depth, and the open-query stack.
type ProcessState struct {
	BoundStateName string
	BoundStatePath string
	Blocks         int
	StackTop       *QueryStackNode
	ExpectsNewBlock bool
}

func (p *ProcessState) push(name string, qt queryType) {
	p.StackTop = &QueryStackNode{Previous: p.StackTop, BlocksAtOpen: p.Blocks, Name: name, Type: qt}
	if qt.isIterationQuery() {
		p.ExpectsNewBlock = true
	}
}

// findOnStack locates an open query by name, used by KAN_UP_ACCESS_ESCAPE
// and KAN_UP_ACCESS_DELETE which may reach past the innermost query.
func (p *ProcessState) findOnStack(name string) *QueryStackNode {
	for n := p.StackTop; n != nil; n = n.Previous {
		if n.Name == name {
			return n
		}
	}
	return nil
}
