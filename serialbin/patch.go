package serialbin

import (
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

// PatchInvalidTypeName is the distinguished sentinel type name for a
// patch of "invalid type" (spec §4.3.5): it serializes as that name
// followed by zero chunks and a zero section-id bound.
const PatchInvalidTypeName = "kan_reflection_patch_invalid_type_t"

// internedSlotWidth is the number of in-memory bytes serialbin treats a
// PatchInternedSlot as occupying within PatchChunk.Bytes; the actual
// in-memory representation of an interned-string handle belongs to the
// reflection registry (out of scope), so this is only a bookkeeping
// convention for splitting raw spans around slots.
const internedSlotWidth = 8

// PatchInternedSlot marks one interned-string value embedded inside an
// otherwise-opaque PatchChunk, at RelOffset bytes into the chunk.
type PatchInternedSlot struct {
	RelOffset int
	Value     string
}

// PatchNodeKind distinguishes a patch's two node shapes (spec §3.3).
type PatchNodeKind int

const (
	PatchData PatchNodeKind = iota
	PatchSectionOpen
)

// PatchNode is one element of a Patch's node sequence.
type PatchNode struct {
	Kind PatchNodeKind

	// Data chunk fields.
	Section         uint32
	Offset, Size    int
	Bytes           []byte
	InternedSlots   []PatchInternedSlot
	// StringArrayChunk marks a chunk whose section targets an array of
	// interned strings, serialized as a sequence of InternedString
	// values (spec §4.3.5) rather than raw bytes + slots.
	StringArrayChunk bool
	StringArrayValues []string

	// Section-open fields.
	ParentID, MyID, SectionType uint32
	SourceOffsetInParent        int
}

// Patch is the in-memory model of an external reflection patch (spec
// §3.3): we only consume and round-trip it, never interpret its
// semantics beyond what serialization requires.
type Patch struct {
	TypeName       string
	SectionIDBound uint32
	Nodes          []PatchNode
}

// PatchTypeResolver answers the layout questions patch chunk
// serialization needs about the struct type a section targets (spec
// §4.3.5): where its interned-string slots live, and whether it targets
// an array of interned strings outright. This is owned by the
// reflection registry in a real deployment; serialbin only consumes it.
type PatchTypeResolver interface {
	// InternedOffsets returns the sorted offsets (relative to the start
	// of a chunk's target) of interned-string slots reachable within
	// the struct-typed target of sectionHandle, or ok=false when the
	// target is not struct-typed (the chunk is then raw bytes).
	InternedOffsets(sectionHandle uint32) (offsets []int, ok bool)
	// InternedArray reports whether sectionHandle targets an array of
	// interned strings outright.
	InternedArray(sectionHandle uint32) bool
}

// WritePatch encodes p to w per the wire format of spec §6.4. reg may be
// nil (strings serialize inline). WritePatch takes no resolver: it relies
// on the InternedSlots/StringArrayChunk fields the caller has already
// filled in on each PatchData node.
func WritePatch(w io.Writer, p *Patch, reg *Registry) error {
	if err := writeInternedString(w, p.TypeName, reg); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(p.Nodes))); err != nil {
		return err
	}
	if err := writeU32(w, p.SectionIDBound); err != nil {
		return err
	}
	for _, n := range p.Nodes {
		if err := writePatchNode(w, n, reg); err != nil {
			return err
		}
	}
	return nil
}

func writePatchNode(w io.Writer, n PatchNode, reg *Registry) error {
	switch n.Kind {
	case PatchData:
		if err := writeRaw(w, []byte{1}); err != nil {
			return err
		}
		if err := writeU32(w, uint32(n.Offset)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(n.Size)); err != nil {
			return err
		}
		if n.StringArrayChunk {
			for _, s := range n.StringArrayValues {
				if err := writeInternedString(w, s, reg); err != nil {
					return err
				}
			}
			return nil
		}
		return writeChunkBytes(w, n, reg)
	case PatchSectionOpen:
		if err := writeRaw(w, []byte{0}); err != nil {
			return err
		}
		if err := writeU32(w, n.ParentID); err != nil {
			return err
		}
		if err := writeU32(w, n.MyID); err != nil {
			return err
		}
		if err := writeU32(w, n.SectionType); err != nil {
			return err
		}
		return writeU32(w, uint32(n.SourceOffsetInParent))
	default:
		return fmt.Errorf("serialbin: unknown patch node kind %d", n.Kind)
	}
}

// writeChunkBytes writes n.Bytes, splicing interned-string values in at
// n.InternedSlots instead of the internedSlotWidth placeholder bytes
// that occupy those spans.
func writeChunkBytes(w io.Writer, n PatchNode, reg *Registry) error {
	slots := append([]PatchInternedSlot(nil), n.InternedSlots...)
	slices.SortFunc(slots, func(a, b PatchInternedSlot) bool { return a.RelOffset < b.RelOffset })
	pos := 0
	for _, slot := range slots {
		if slot.RelOffset > pos {
			if err := writeRaw(w, n.Bytes[pos:slot.RelOffset]); err != nil {
				return err
			}
		}
		if err := writeInternedString(w, slot.Value, reg); err != nil {
			return err
		}
		pos = slot.RelOffset + internedSlotWidth
	}
	if pos < len(n.Bytes) {
		return writeRaw(w, n.Bytes[pos:])
	}
	return nil
}

// ReadPatch decodes a Patch from r. resolver classifies each section so
// interned-string slots can be split back out of raw chunk bytes; pass
// nil if the patch is known to contain no struct-typed sections.
func ReadPatch(r io.Reader, reg *Registry, resolver PatchTypeResolver) (*Patch, error) {
	typeName, err := readInternedString(r, reg)
	if err != nil {
		return nil, err
	}
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	bound, err := readU32(r)
	if err != nil {
		return nil, err
	}
	p := &Patch{TypeName: typeName, SectionIDBound: bound}
	// currentSection tracks which section id chunks following a section
	// open belong to, defaulting to the root (section 0).
	currentSection := uint32(0)
	for i := uint32(0); i < count; i++ {
		var tag [1]byte
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return nil, fmt.Errorf("serialbin: truncated patch node %d: %w", i, err)
		}
		if tag[0] == 0 {
			n, err := readSectionOpen(r)
			if err != nil {
				return nil, err
			}
			currentSection = n.MyID
			p.Nodes = append(p.Nodes, n)
			continue
		}
		n, err := readDataChunk(r, reg, resolver, currentSection)
		if err != nil {
			return nil, err
		}
		p.Nodes = append(p.Nodes, n)
	}
	return p, nil
}

func readSectionOpen(r io.Reader) (PatchNode, error) {
	parent, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	my, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	sectionType, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	srcOffset, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	return PatchNode{
		Kind:                 PatchSectionOpen,
		ParentID:             parent,
		MyID:                 my,
		SectionType:          sectionType,
		SourceOffsetInParent: int(srcOffset),
	}, nil
}

func readDataChunk(r io.Reader, reg *Registry, resolver PatchTypeResolver, section uint32) (PatchNode, error) {
	offset, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	size, err := readU32(r)
	if err != nil {
		return PatchNode{}, err
	}
	n := PatchNode{Kind: PatchData, Section: section, Offset: int(offset), Size: int(size)}

	if resolver != nil && resolver.InternedArray(section) {
		count := int(size) / internedSlotWidth
		n.StringArrayChunk = true
		n.StringArrayValues = make([]string, count)
		for i := range n.StringArrayValues {
			s, err := readInternedString(r, reg)
			if err != nil {
				return PatchNode{}, err
			}
			n.StringArrayValues[i] = s
		}
		return n, nil
	}

	var offsets []int
	if resolver != nil {
		offsets, _ = resolver.InternedOffsets(section)
	}
	bytes := make([]byte, size)
	pos := 0
	for _, abs := range offsets {
		rel := abs - int(offset)
		if rel < 0 || rel >= int(size) {
			continue
		}
		if rel > pos {
			if _, err := io.ReadFull(r, bytes[pos:rel]); err != nil {
				return PatchNode{}, fmt.Errorf("serialbin: truncated patch chunk: %w", err)
			}
		}
		s, err := readInternedString(r, reg)
		if err != nil {
			return PatchNode{}, err
		}
		n.InternedSlots = append(n.InternedSlots, PatchInternedSlot{RelOffset: rel, Value: s})
		pos = rel + internedSlotWidth
	}
	if pos < int(size) {
		if _, err := io.ReadFull(r, bytes[pos:]); err != nil {
			return PatchNode{}, fmt.Errorf("serialbin: truncated patch chunk: %w", err)
		}
	}
	n.Bytes = bytes
	return n, nil
}
