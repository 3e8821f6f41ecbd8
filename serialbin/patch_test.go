package serialbin

import (
	"bytes"
	"testing"
)

// fixedPatchResolver answers PatchTypeResolver questions with static
// per-section data for tests.
type fixedPatchResolver struct {
	offsets map[uint32][]int
	arrays  map[uint32]bool
}

func (f fixedPatchResolver) InternedOffsets(section uint32) ([]int, bool) {
	o, ok := f.offsets[section]
	return o, ok
}

func (f fixedPatchResolver) InternedArray(section uint32) bool {
	return f.arrays[section]
}

// TestPatchRoundTripWithInternedSlot mirrors spec §8 seed case 6: a patch
// whose root targets `struct { int x; kan_interned_string_t name; int y; }`
// with one data chunk covering the whole struct.
func TestPatchRoundTripWithInternedSlot(t *testing.T) {
	// layout: x at [0,4), name placeholder at [4,12) (internedSlotWidth),
	// y at [12,16).
	raw := make([]byte, 16)
	raw[0] = 0x2a // x = 42
	raw[15] = 0x07 // y = high byte of some value, doesn't matter for the test

	p := &Patch{
		TypeName:       "widget_t",
		SectionIDBound: 1,
		Nodes: []PatchNode{
			{
				Kind:   PatchData,
				Section: 0,
				Offset: 0,
				Size:   16,
				Bytes:  raw,
				InternedSlots: []PatchInternedSlot{
					{RelOffset: 4, Value: "widget-name"},
				},
			},
		},
	}

	reg := NewLoadStoreRegistry()
	var buf bytes.Buffer
	if err := WritePatch(&buf, p, reg); err != nil {
		t.Fatal(err)
	}

	resolver := fixedPatchResolver{offsets: map[uint32][]int{0: {4}}}
	got, err := ReadPatch(&buf, reg, resolver)
	if err != nil {
		t.Fatal(err)
	}

	if got.TypeName != "widget_t" || got.SectionIDBound != 1 {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(got.Nodes))
	}
	n := got.Nodes[0]
	if len(n.InternedSlots) != 1 || n.InternedSlots[0].Value != "widget-name" || n.InternedSlots[0].RelOffset != 4 {
		t.Fatalf("interned slot mismatch: %+v", n.InternedSlots)
	}
	if n.Bytes[0] != 0x2a || n.Bytes[15] != 0x07 {
		t.Fatalf("raw byte spans mismatch: %v", n.Bytes)
	}
}

func TestPatchWithSectionOpenRoundTrip(t *testing.T) {
	p := &Patch{
		TypeName:       "container_t",
		SectionIDBound: 2,
		Nodes: []PatchNode{
			{Kind: PatchSectionOpen, ParentID: 0, MyID: 1, SectionType: 5, SourceOffsetInParent: 8},
			{Kind: PatchData, Section: 1, Offset: 0, Size: 4, Bytes: []byte{1, 2, 3, 4}},
		},
	}
	var buf bytes.Buffer
	if err := WritePatch(&buf, p, nil); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPatch(&buf, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(got.Nodes))
	}
	open := got.Nodes[0]
	if open.Kind != PatchSectionOpen || open.MyID != 1 || open.SectionType != 5 || open.SourceOffsetInParent != 8 {
		t.Fatalf("section-open mismatch: %+v", open)
	}
	data := got.Nodes[1]
	if data.Section != 1 || !bytes.Equal(data.Bytes, []byte{1, 2, 3, 4}) {
		t.Fatalf("data chunk mismatch: %+v", data)
	}
}

func TestInvalidPatchSerializesAsSentinelWithNoChunks(t *testing.T) {
	p := &Patch{TypeName: PatchInvalidTypeName}
	var buf bytes.Buffer
	if err := WritePatch(&buf, p, nil); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPatch(&buf, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.TypeName != PatchInvalidTypeName {
		t.Fatalf("expected sentinel type name, got %q", got.TypeName)
	}
	if len(got.Nodes) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got.Nodes))
	}
}
