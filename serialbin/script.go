package serialbin

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// CommandKind tags a Command's shape, mirroring spec §3.3's Command
// variant.
type CommandKind int

const (
	CmdBlock CommandKind = iota
	CmdString
	CmdInternedString
	CmdBlockArray
	CmdStringArray
	CmdInternedStringArray
	CmdStructArray
	CmdPatchArray
	CmdPatch
)

// NoCondition is the sentinel "NONE" condition index (spec §3.3).
const NoCondition = -1

// Command is one step of a compiled Script.
type Command struct {
	Kind CommandKind
	Offset int
	// Size is only meaningful for CmdBlock.
	Size int
	// ElementTypeName is only meaningful for CmdStructArray.
	ElementTypeName string
	// Condition indexes into the owning Script's Conditions, or
	// NoCondition.
	Condition int
}

// Condition is a visibility-condition entry (spec §3.3): a command is
// only executed when the field at SourceOffset (Size bytes wide, read as
// a little-endian unsigned integer) holds one of Allowed, and, if Parent
// is not NoCondition, the parent condition also holds.
type Condition struct {
	Field        string
	SourceOffset int
	Size         int
	Allowed      []uint64
	Parent       int
}

func (c Condition) equal(o Condition) bool {
	return c.Field == o.Field && c.SourceOffset == o.SourceOffset &&
		c.Size == o.Size && c.Parent == o.Parent && slices.Equal(c.Allowed, o.Allowed)
}

// Script is the immutable compiled command sequence for one reflected
// type (spec §3.3).
type Script struct {
	TypeName   string
	Size       int
	Commands   []Command
	Conditions []Condition
}

// BuildScript compiles t's Script, consulting cache (which may be nil to
// skip caching) and resolver for nested struct lookups.
func BuildScript(resolver TypeResolver, cache *ScriptCache, t *StructType) (*Script, error) {
	if cache != nil {
		return cache.GetOrBuild(t.Name, func() (*Script, error) {
			return buildScript(resolver, cache, t)
		})
	}
	return buildScript(resolver, cache, t)
}

func buildScript(resolver TypeResolver, cache *ScriptCache, t *StructType) (*Script, error) {
	b := &scriptBuilder{resolver: resolver, cache: cache}
	if err := b.walk(t); err != nil {
		return nil, err
	}
	b.flushBlock()
	return &Script{TypeName: t.Name, Size: t.Size, Commands: b.commands, Conditions: b.conditions}, nil
}

type scriptBuilder struct {
	resolver TypeResolver
	cache    *ScriptCache

	commands   []Command
	conditions []Condition

	blockOpen   bool
	blockOffset int
	blockSize   int
	blockCond   int
}

func (b *scriptBuilder) walk(t *StructType) error {
	for i := range t.Fields {
		f := &t.Fields[i]
		cond := NoCondition
		if f.VisibilityConditionField != "" {
			c, err := b.conditionFor(t, f, NoCondition)
			if err != nil {
				return err
			}
			cond = c
		}
		if err := b.emitField(t, f, cond); err != nil {
			return err
		}
	}
	return nil
}

func (b *scriptBuilder) emitField(t *StructType, f *Field, cond int) error {
	switch f.Archetype {
	case ArchetypeBlock:
		b.appendBlock(f.Offset, f.Size, cond)
	case ArchetypeString:
		b.flushBlock()
		b.commands = append(b.commands, Command{Kind: CmdString, Offset: f.Offset, Condition: cond})
	case ArchetypeInternedString:
		b.flushBlock()
		b.commands = append(b.commands, Command{Kind: CmdInternedString, Offset: f.Offset, Condition: cond})
	case ArchetypePatch:
		b.flushBlock()
		b.commands = append(b.commands, Command{Kind: CmdPatch, Offset: f.Offset, Condition: cond})
	case ArchetypeStruct:
		child, ok := b.resolver.Lookup(f.ElementTypeName)
		if !ok {
			return fmt.Errorf("serialbin: unknown struct type %q referenced by field %q of %q", f.ElementTypeName, f.Name, t.Name)
		}
		childScript, err := BuildScript(b.resolver, b.cache, child)
		if err != nil {
			return err
		}
		b.flushBlock()
		b.inline(childScript, f.Offset, cond)
	case ArchetypeBlockArray, ArchetypeStringArray, ArchetypeInternedStringArray, ArchetypePatchArray:
		b.flushBlock()
		b.commands = append(b.commands, Command{Kind: dynamicArrayKind(f.Archetype), Offset: f.Offset, Condition: cond})
	case ArchetypeStructArray:
		b.flushBlock()
		b.commands = append(b.commands, Command{Kind: CmdStructArray, Offset: f.Offset, ElementTypeName: f.ElementTypeName, Condition: cond})
	case ArchetypeInlineArray:
		b.flushBlock()
		for i := 0; i < f.ArrayCount; i++ {
			off := f.Offset + i*f.ElementStride
			switch f.ElementArchetype {
			case ArchetypeString:
				b.commands = append(b.commands, Command{Kind: CmdString, Offset: off, Condition: cond})
			case ArchetypeInternedString:
				b.commands = append(b.commands, Command{Kind: CmdInternedString, Offset: off, Condition: cond})
			case ArchetypePatch:
				b.commands = append(b.commands, Command{Kind: CmdPatch, Offset: off, Condition: cond})
			case ArchetypeStruct:
				child, ok := b.resolver.Lookup(f.ElementTypeName)
				if !ok {
					return fmt.Errorf("serialbin: unknown struct type %q referenced by inline array field %q of %q", f.ElementTypeName, f.Name, t.Name)
				}
				childScript, err := BuildScript(b.resolver, b.cache, child)
				if err != nil {
					return err
				}
				b.inline(childScript, off, cond)
			default:
				return fmt.Errorf("serialbin: inline array field %q of %q has unsupported element archetype", f.Name, t.Name)
			}
		}
	default:
		return fmt.Errorf("serialbin: field %q of %q has unknown archetype %d", f.Name, t.Name, f.Archetype)
	}
	return nil
}

func dynamicArrayKind(a Archetype) CommandKind {
	switch a {
	case ArchetypeBlockArray:
		return CmdBlockArray
	case ArchetypeStringArray:
		return CmdStringArray
	case ArchetypeInternedStringArray:
		return CmdInternedStringArray
	case ArchetypePatchArray:
		return CmdPatchArray
	default:
		panic("serialbin: dynamicArrayKind called with non-array archetype")
	}
}

// conditionFor resolves (and dedups) the Condition for a field whose
// VisibilityConditionField names a sibling field within t, reparenting
// it under parent if parent != NoCondition.
func (b *scriptBuilder) conditionFor(t *StructType, f *Field, parent int) (int, error) {
	var src *Field
	for i := range t.Fields {
		if t.Fields[i].Name == f.VisibilityConditionField {
			src = &t.Fields[i]
			break
		}
	}
	if src == nil {
		return NoCondition, fmt.Errorf("serialbin: visibility condition field %q (for %q) not found in %q", f.VisibilityConditionField, f.Name, t.Name)
	}
	c := Condition{
		Field:        src.Name,
		SourceOffset: src.Offset,
		Size:         src.Size,
		Allowed:      f.VisibilityConditionValues,
		Parent:       parent,
	}
	return b.internCondition(c), nil
}

func (b *scriptBuilder) internCondition(c Condition) int {
	for i, existing := range b.conditions {
		if existing.equal(c) {
			return i
		}
	}
	b.conditions = append(b.conditions, c)
	return len(b.conditions) - 1
}

// inline splices a nested struct's already-compiled script into the
// builder's command/condition lists, rebasing offsets by baseOffset and
// condition indices by the current length, and reparenting the child's
// top-level (parent == NoCondition) conditions under outerCond (spec
// §4.3.1: "Recursive structs inline their child script's conditions and
// commands, rebasing offsets and condition indices").
func (b *scriptBuilder) inline(child *Script, baseOffset int, outerCond int) {
	condBase := len(b.conditions)
	for _, c := range child.Conditions {
		nc := Condition{
			Field:        c.Field,
			SourceOffset: c.SourceOffset + baseOffset,
			Size:         c.Size,
			Allowed:      c.Allowed,
		}
		if c.Parent == NoCondition {
			nc.Parent = outerCond
		} else {
			nc.Parent = c.Parent + condBase
		}
		b.conditions = append(b.conditions, nc)
	}
	for _, cmd := range child.Commands {
		nc := cmd
		nc.Offset += baseOffset
		if cmd.Condition == NoCondition {
			nc.Condition = outerCond
		} else {
			nc.Condition = cmd.Condition + condBase
		}
		b.commands = append(b.commands, nc)
	}
}

func (b *scriptBuilder) appendBlock(offset, size, cond int) {
	if b.blockOpen && b.blockCond == cond && b.blockOffset+b.blockSize == offset {
		b.blockSize += size
		return
	}
	b.flushBlock()
	b.blockOpen = true
	b.blockOffset = offset
	b.blockSize = size
	b.blockCond = cond
}

func (b *scriptBuilder) flushBlock() {
	if !b.blockOpen {
		return
	}
	b.commands = append(b.commands, Command{Kind: CmdBlock, Offset: b.blockOffset, Size: b.blockSize, Condition: b.blockCond})
	b.blockOpen = false
}

// InternedStringOffsets returns the sorted absolute byte offsets at
// which an InternedString slot appears anywhere reachable (recursively,
// through non-union structs) from t's instance layout (spec §3.3,
// InternedStringLookup). It is used by patch chunk serialization to pick
// interned strings out of an otherwise opaque byte span.
func InternedStringOffsets(resolver TypeResolver, t *StructType) []int {
	var offsets []int
	var walk func(ty *StructType, base int)
	walk = func(ty *StructType, base int) {
		for _, f := range ty.Fields {
			switch f.Archetype {
			case ArchetypeInternedString:
				offsets = append(offsets, base+f.Offset)
			case ArchetypeStruct:
				if child, ok := resolver.Lookup(f.ElementTypeName); ok {
					walk(child, base+f.Offset)
				}
			case ArchetypeInlineArray:
				for i := 0; i < f.ArrayCount; i++ {
					elemBase := base + f.Offset + i*f.ElementStride
					switch f.ElementArchetype {
					case ArchetypeInternedString:
						offsets = append(offsets, elemBase)
					case ArchetypeStruct:
						if child, ok := resolver.Lookup(f.ElementTypeName); ok {
							walk(child, elemBase)
						}
					}
				}
			}
		}
	}
	walk(t, 0)
	slices.Sort(offsets)
	return offsets
}
