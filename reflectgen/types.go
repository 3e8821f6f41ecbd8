package reflectgen

// TypeGroup classifies a parsed C type reference before archetype
// selection narrows it further.
type TypeGroup int

const (
	GroupValue TypeGroup = iota
	GroupEnum
	GroupStruct
)

// TypeInfo is a type reference parsed out of a declaration, e.g. the type
// of a struct field, function return type or argument.
type TypeInfo struct {
	Name          string
	Group         TypeGroup
	IsConst       bool
	PointerLevel  uint8 // 0..255, §3.1
	ArraySuffix   string
	dynArrayOf    *TypeInfo // payload of kan_reflection_dynamic_array_type, if any
}

// Archetype is the runtime tag describing how to interpret a reflected
// field's bytes (glossary: Archetype).
type Archetype int

const (
	ArchetypeSigned Archetype = iota
	ArchetypeUnsigned
	ArchetypeFloating
	ArchetypeString
	ArchetypeInternedString
	ArchetypeEnum
	ArchetypeExternalPointer
	ArchetypeStructPointer
	ArchetypeStruct
	ArchetypeInlineArray
	ArchetypeDynamicArray
	ArchetypePatch
)

func (a Archetype) String() string {
	switch a {
	case ArchetypeSigned:
		return "KAN_REFLECTION_ARCHETYPE_SIGNED_INT"
	case ArchetypeUnsigned:
		return "KAN_REFLECTION_ARCHETYPE_UNSIGNED_INT"
	case ArchetypeFloating:
		return "KAN_REFLECTION_ARCHETYPE_FLOATING"
	case ArchetypeString:
		return "KAN_REFLECTION_ARCHETYPE_STRING_POINTER"
	case ArchetypeInternedString:
		return "KAN_REFLECTION_ARCHETYPE_INTERNED_STRING"
	case ArchetypeEnum:
		return "KAN_REFLECTION_ARCHETYPE_ENUM"
	case ArchetypeExternalPointer:
		return "KAN_REFLECTION_ARCHETYPE_EXTERNAL_POINTER"
	case ArchetypeStructPointer:
		return "KAN_REFLECTION_ARCHETYPE_STRUCT_POINTER"
	case ArchetypeStruct:
		return "KAN_REFLECTION_ARCHETYPE_STRUCT"
	case ArchetypeInlineArray:
		return "KAN_REFLECTION_ARCHETYPE_INLINE_ARRAY"
	case ArchetypeDynamicArray:
		return "KAN_REFLECTION_ARCHETYPE_DYNAMIC_ARRAY"
	case ArchetypePatch:
		return "KAN_REFLECTION_ARCHETYPE_PATCH"
	default:
		return "KAN_REFLECTION_ARCHETYPE_UNKNOWN"
	}
}

// wellKnownScalars maps C scalar spellings to their archetype, standing in
// for the _Generic-based archetype-selection helper macro the original
// defers to the compiler (see spec §9, open question on _Generic). Since
// Go code generation happens entirely at preprocessing time, the mapping
// is resolved eagerly here instead of being deferred to the C compiler.
var wellKnownScalars = map[string]Archetype{
	"int8_t": ArchetypeSigned, "int16_t": ArchetypeSigned,
	"int32_t": ArchetypeSigned, "int64_t": ArchetypeSigned,
	"int": ArchetypeSigned, "short": ArchetypeSigned, "long": ArchetypeSigned,
	"signed char": ArchetypeSigned,
	"uint8_t":     ArchetypeUnsigned, "uint16_t": ArchetypeUnsigned,
	"uint32_t": ArchetypeUnsigned, "uint64_t": ArchetypeUnsigned,
	"unsigned": ArchetypeUnsigned, "unsigned int": ArchetypeUnsigned,
	"unsigned char": ArchetypeUnsigned, "size_t": ArchetypeUnsigned,
	"kan_instance_size_t": ArchetypeUnsigned,
	"float":               ArchetypeFloating,
	"double":              ArchetypeFloating,
	"bool":                ArchetypeUnsigned,
	"_Bool":               ArchetypeUnsigned,
}

// classifyArchetype implements the decision order from spec §4.1.6,
// mirrored from the branch order of the original's
// field_bootstrap_archetype_commons/struct_bootstrap_archetype (see
// SPEC_FULL.md §3): pointer special-cases are tested before generic
// pointer, before interned string, before patch, before dynamic array,
// before plain struct, and scalars are resolved last.
func classifyArchetype(t TypeInfo, externalPointer bool) Archetype {
	if t.PointerLevel >= 1 {
		switch {
		case t.PointerLevel == 1 && t.Name == "char" && !externalPointer:
			return ArchetypeString
		case t.Group == GroupStruct && (externalPointer || t.PointerLevel >= 2):
			return ArchetypeExternalPointer
		case t.Group == GroupStruct && t.PointerLevel == 1:
			return ArchetypeStructPointer
		default:
			return ArchetypeExternalPointer
		}
	}

	switch t.Name {
	case "kan_interned_string_t":
		return ArchetypeInternedString
	case "kan_reflection_patch_t":
		return ArchetypePatch
	case "kan_dynamic_array_t":
		return ArchetypeDynamicArray
	}

	if t.Group == GroupStruct {
		return ArchetypeStruct
	}
	if t.Group == GroupEnum {
		return ArchetypeEnum
	}
	if a, ok := wellKnownScalars[t.Name]; ok {
		return a
	}
	// unknown scalar-like spelling: the original defers to the compiler's
	// _Generic dispatch; we default to signed-int semantics since that is
	// the helper macro's fallback arm for unannotated typedefs of integers.
	return ArchetypeSigned
}
