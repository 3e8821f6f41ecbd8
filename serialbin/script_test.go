package serialbin

import "testing"

func pointType() *StructType {
	return &StructType{
		Name: "Point",
		Size: 8,
		Fields: []Field{
			{Name: "x", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "y", Offset: 4, Size: 4, Archetype: ArchetypeBlock},
		},
	}
}

func widgetType() *StructType {
	return &StructType{
		Name: "Widget",
		Size: 32,
		Fields: []Field{
			{Name: "id", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "tag", Offset: 4, Size: 4, Archetype: ArchetypeBlock},
			{Name: "name", Offset: 8, Archetype: ArchetypeString,
				VisibilityConditionField: "tag", VisibilityConditionValues: []uint64{1}},
			{Name: "origin", Offset: 16, Size: 8, Archetype: ArchetypeStruct, ElementTypeName: "Point"},
			{Name: "tags", Offset: 24, Archetype: ArchetypeStringArray},
		},
	}
}

func testResolver() MapResolver {
	return MapResolver{"Point": pointType(), "Widget": widgetType()}
}

func TestBuildScriptCoalescesContiguousBlocks(t *testing.T) {
	resolver := testResolver()
	script, err := BuildScript(resolver, nil, pointType())
	if err != nil {
		t.Fatal(err)
	}
	if len(script.Commands) != 1 {
		t.Fatalf("expected x/y to coalesce into one Block command, got %d commands: %+v", len(script.Commands), script.Commands)
	}
	cmd := script.Commands[0]
	if cmd.Kind != CmdBlock || cmd.Offset != 0 || cmd.Size != 8 {
		t.Fatalf("unexpected coalesced command: %+v", cmd)
	}
}

func TestBuildScriptWidgetShape(t *testing.T) {
	resolver := testResolver()
	script, err := BuildScript(resolver, nil, widgetType())
	if err != nil {
		t.Fatal(err)
	}
	// id+tag coalesce (1), name (1, conditional), origin inlined as one
	// Block (1), tags array (1) = 4 commands.
	if len(script.Commands) != 4 {
		t.Fatalf("unexpected command count %d: %+v", len(script.Commands), script.Commands)
	}
	if script.Commands[0].Kind != CmdBlock || script.Commands[0].Size != 8 {
		t.Fatalf("expected id+tag coalesced block, got %+v", script.Commands[0])
	}
	nameCmd := script.Commands[1]
	if nameCmd.Kind != CmdString || nameCmd.Condition == NoCondition {
		t.Fatalf("expected conditional name string command, got %+v", nameCmd)
	}
	cond := script.Conditions[nameCmd.Condition]
	if cond.Field != "tag" || cond.SourceOffset != 4 || cond.Allowed[0] != 1 {
		t.Fatalf("unexpected condition: %+v", cond)
	}
	originCmd := script.Commands[2]
	if originCmd.Kind != CmdBlock || originCmd.Offset != 16 || originCmd.Size != 8 {
		t.Fatalf("expected inlined Point block at offset 16, got %+v", originCmd)
	}
	tagsCmd := script.Commands[3]
	if tagsCmd.Kind != CmdStringArray || tagsCmd.Offset != 24 {
		t.Fatalf("unexpected tags command: %+v", tagsCmd)
	}
}

func TestBuildScriptDedupsEquivalentConditions(t *testing.T) {
	t2 := &StructType{
		Name: "TwoArms",
		Size: 16,
		Fields: []Field{
			{Name: "tag", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "a", Offset: 4, Archetype: ArchetypeString,
				VisibilityConditionField: "tag", VisibilityConditionValues: []uint64{0}},
			{Name: "b", Offset: 8, Archetype: ArchetypeString,
				VisibilityConditionField: "tag", VisibilityConditionValues: []uint64{0}},
		},
	}
	script, err := BuildScript(MapResolver{"TwoArms": t2}, nil, t2)
	if err != nil {
		t.Fatal(err)
	}
	if len(script.Conditions) != 1 {
		t.Fatalf("expected equivalent visibility conditions to share one Condition entry, got %d", len(script.Conditions))
	}
}

func TestScriptCacheBuildsOnce(t *testing.T) {
	cache := &ScriptCache{}
	resolver := testResolver()
	calls := 0
	build := func() (*Script, error) {
		calls++
		return BuildScript(resolver, nil, widgetType())
	}
	for i := 0; i < 5; i++ {
		if _, err := cache.GetOrBuild("Widget", build); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected build func to run exactly once, ran %d times", calls)
	}
}

func TestInternedStringOffsetsRecurseThroughNestedStruct(t *testing.T) {
	inner := &StructType{
		Name: "Inner",
		Size: 12,
		Fields: []Field{
			{Name: "a", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "label", Offset: 4, Archetype: ArchetypeInternedString},
		},
	}
	outer := &StructType{
		Name: "Outer",
		Size: 20,
		Fields: []Field{
			{Name: "header", Offset: 0, Size: 4, Archetype: ArchetypeBlock},
			{Name: "inner", Offset: 4, Size: 12, Archetype: ArchetypeStruct, ElementTypeName: "Inner"},
		},
	}
	resolver := MapResolver{"Inner": inner, "Outer": outer}
	offsets := InternedStringOffsets(resolver, outer)
	if len(offsets) != 1 || offsets[0] != 8 {
		t.Fatalf("expected interned-string offset [8], got %v", offsets)
	}
}
