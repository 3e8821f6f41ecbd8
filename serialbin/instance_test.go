package serialbin

// memInstance is a minimal in-memory Instance used by this package's
// tests. A real caller adapts its own reflected struct representation
// (whatever layout the reflection registry gives it); this test double
// instead keeps a plain byte buffer for Block ranges and side maps for
// the out-of-line kinds (String/InternedString/Patch/Array), which is
// the simplest thing that exercises every Script command kind.
type memInstance struct {
	bytes    []byte
	strings  map[int]string
	interned map[int]string
	patches  map[int]*Patch
	arrays   map[int]*memArray
}

func newMemInstance(size int) *memInstance {
	return &memInstance{
		bytes:    make([]byte, size),
		strings:  map[int]string{},
		interned: map[int]string{},
		patches:  map[int]*Patch{},
		arrays:   map[int]*memArray{},
	}
}

func (m *memInstance) Block(offset, size int) []byte { return m.bytes[offset : offset+size] }
func (m *memInstance) SetBlock(offset int, data []byte) {
	copy(m.bytes[offset:offset+len(data)], data)
}
func (m *memInstance) String(offset int) string          { return m.strings[offset] }
func (m *memInstance) SetString(offset int, s string)    { m.strings[offset] = s }
func (m *memInstance) InternedString(offset int) string  { return m.interned[offset] }
func (m *memInstance) SetInternedString(offset int, s string) { m.interned[offset] = s }
func (m *memInstance) Patch(offset int) *Patch           { return m.patches[offset] }
func (m *memInstance) SetPatch(offset int, p *Patch)     { m.patches[offset] = p }

func (m *memInstance) Array(offset int) ArrayAccessor {
	a, ok := m.arrays[offset]
	if !ok {
		a = &memArray{}
		m.arrays[offset] = a
	}
	return a
}

// memArray backs every element kind with a parallel slice; a real
// ArrayAccessor implementation would instead interpret its own
// kan_dynamic_array_t-equivalent memory.
type memArray struct {
	n         int
	blocks    [][]byte
	strs      []string
	interned  []string
	patches   []*Patch
	instances []*memInstance
	elemSize  int
}

func (a *memArray) Len() int { return a.n }

func (a *memArray) Grow(n int) {
	a.n = n
	a.blocks = make([][]byte, n)
	a.strs = make([]string, n)
	a.interned = make([]string, n)
	a.patches = make([]*Patch, n)
	a.instances = make([]*memInstance, n)
	for i := range a.instances {
		a.instances[i] = newMemInstance(a.elemSize)
		a.blocks[i] = make([]byte, a.elemSize)
	}
}

func (a *memArray) Block(i int) []byte       { return a.blocks[i] }
func (a *memArray) SetBlock(i int, d []byte) { a.blocks[i] = append([]byte(nil), d...) }
func (a *memArray) String(i int) string            { return a.strs[i] }
func (a *memArray) SetString(i int, s string)      { a.strs[i] = s }
func (a *memArray) InternedString(i int) string       { return a.interned[i] }
func (a *memArray) SetInternedString(i int, s string) { a.interned[i] = s }
func (a *memArray) Patch(i int) *Patch         { return a.patches[i] }
func (a *memArray) SetPatch(i int, p *Patch)   { a.patches[i] = p }
func (a *memArray) StructInstance(i int) Instance {
	if a.instances[i] == nil {
		a.instances[i] = newMemInstance(a.elemSize)
	}
	return a.instances[i]
}

func (a *memArray) push(elemSize int) *memInstance {
	a.elemSize = elemSize
	a.n++
	inst := newMemInstance(elemSize)
	a.instances = append(a.instances, inst)
	a.blocks = append(a.blocks, make([]byte, elemSize))
	a.strs = append(a.strs, "")
	a.interned = append(a.interned, "")
	a.patches = append(a.patches, nil)
	return inst
}
