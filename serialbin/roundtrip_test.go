package serialbin

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func recordType() *StructType {
	return &StructType{
		Name: "Record",
		Size: 32,
		Fields: []Field{
			{Name: "id", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "tag", Offset: 4, Size: 4, Archetype: ArchetypeBlock},
			{Name: "name", Offset: 8, Archetype: ArchetypeString,
				VisibilityConditionField: "tag", VisibilityConditionValues: []uint64{1}},
			{Name: "label", Offset: 12, Archetype: ArchetypeInternedString},
			{Name: "origin", Offset: 16, Size: 8, Archetype: ArchetypeStruct, ElementTypeName: "Point"},
			{Name: "tags", Offset: 24, Archetype: ArchetypeStringArray},
		},
	}
}

func buildRecord(t *testing.T, id, tag uint32, name, label string, x, y int32, tags []string) *memInstance {
	t.Helper()
	inst := newMemInstance(32)
	binary.LittleEndian.PutUint32(inst.bytes[0:4], id)
	binary.LittleEndian.PutUint32(inst.bytes[4:8], tag)
	inst.SetString(8, name)
	inst.SetInternedString(12, label)
	binary.LittleEndian.PutUint32(inst.bytes[16:20], uint32(x))
	binary.LittleEndian.PutUint32(inst.bytes[20:24], uint32(y))
	arr := inst.Array(24).(*memArray)
	arr.n = len(tags)
	arr.strs = append([]string(nil), tags...)
	return inst
}

func writeRecord(t *testing.T, resolver TypeResolver, cache *ScriptCache, reg *Registry, inst *memInstance) []byte {
	t.Helper()
	w, err := NewWriter(resolver, cache, reg, recordType(), inst)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := w.Run(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readRecord(t *testing.T, resolver TypeResolver, cache *ScriptCache, reg *Registry, wire []byte) *memInstance {
	t.Helper()
	inst := newMemInstance(32)
	arr := inst.Array(24).(*memArray)
	arr.elemSize = 0
	r, err := NewReader(resolver, cache, reg, nil, recordType(), inst)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(bytes.NewReader(wire)); err != nil {
		t.Fatal(err)
	}
	return inst
}

func TestWriterReaderRoundTripVisibleField(t *testing.T) {
	resolver := MapResolver{"Point": pointType(), "Record": recordType()}
	cache := &ScriptCache{}
	inst := buildRecord(t, 42, 1, "hello", "tag-label", 3, 4, []string{"a", "bb", "ccc"})

	wire := writeRecord(t, resolver, cache, nil, inst)
	got := readRecord(t, resolver, cache, nil, wire)

	if binary.LittleEndian.Uint32(got.bytes[0:4]) != 42 {
		t.Fatalf("id mismatch")
	}
	if binary.LittleEndian.Uint32(got.bytes[4:8]) != 1 {
		t.Fatalf("tag mismatch")
	}
	if got.String(8) != "hello" {
		t.Fatalf("name mismatch: got %q", got.String(8))
	}
	if got.InternedString(12) != "tag-label" {
		t.Fatalf("label mismatch: got %q", got.InternedString(12))
	}
	if binary.LittleEndian.Uint32(got.bytes[16:20]) != 3 || binary.LittleEndian.Uint32(got.bytes[20:24]) != 4 {
		t.Fatalf("origin mismatch")
	}
	arr := got.Array(24).(*memArray)
	if arr.Len() != 3 || arr.strs[0] != "a" || arr.strs[1] != "bb" || arr.strs[2] != "ccc" {
		t.Fatalf("tags mismatch: %+v", arr.strs)
	}
}

func TestWriterSkipsFieldWhenConditionFalse(t *testing.T) {
	resolver := MapResolver{"Point": pointType(), "Record": recordType()}
	cache := &ScriptCache{}
	inst := buildRecord(t, 1, 0, "should-not-be-written", "", 0, 0, nil)

	wire := writeRecord(t, resolver, cache, nil, inst)
	got := readRecord(t, resolver, cache, nil, wire)

	if got.String(8) != "" {
		t.Fatalf("expected name to be skipped when tag != 1, got %q", got.String(8))
	}
}

func TestWriterReaderRoundTripWithRegistry(t *testing.T) {
	resolver := MapResolver{"Point": pointType(), "Record": recordType()}
	cache := &ScriptCache{}
	writeReg := NewLoadStoreRegistry()
	inst := buildRecord(t, 7, 1, "plain-string", "shared-label", 1, 2, []string{"shared-label", "other"})

	wire := writeRecord(t, resolver, cache, writeReg, inst)

	var regBuf bytes.Buffer
	if err := writeReg.WriteTo(&regBuf); err != nil {
		t.Fatal(err)
	}
	readReg, err := ReadRegistry(&regBuf)
	if err != nil {
		t.Fatal(err)
	}

	got := readRecord(t, resolver, cache, readReg, wire)
	if got.String(8) != "plain-string" {
		t.Fatalf("name mismatch: %q", got.String(8))
	}
	if got.InternedString(12) != "shared-label" {
		t.Fatalf("label mismatch through registry: %q", got.InternedString(12))
	}
}
