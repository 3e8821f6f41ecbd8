package reflectgen

// SecondaryMetaKind identifies which secondary-level meta list a
// (topName, secondaryName) pair belongs to.
type SecondaryMetaKind int

const (
	SecondaryEnumValue SecondaryMetaKind = iota
	SecondaryStructField
	SecondaryFunctionArgument
)

// SecondaryLevelMeta attaches a registrar-meta identifier to a named
// member (enum value, struct field or function argument) of some
// top-level declaration.
type SecondaryLevelMeta struct {
	Kind         SecondaryMetaKind
	TopName      string
	SecondaryName string
	MetaIdent    string
}

// TopLevelMetaKind identifies which top-level meta list an identifier
// belongs to.
type TopLevelMetaKind int

const (
	TopLevelEnum TopLevelMetaKind = iota
	TopLevelStruct
	TopLevelFunction
)

// TopLevelMeta attaches a registrar-meta identifier to an enum, struct or
// function declaration.
type TopLevelMeta struct {
	Kind      TopLevelMetaKind
	MetaIdent string
}

// VisibilityConditionValue is one allowed value recorded by a
// kan_reflection_visibility_condition_value pragma.
type VisibilityConditionValue struct {
	Token string
}

// MetaStore is the scratch buffer attached to the parser that accumulates
// pragmas seen since the last top-level declaration (spec §3.1). It must
// be reset at every input-file switch and after every successful top-level
// declaration.
type MetaStore struct {
	Export          bool
	Flags           bool
	Ignore          bool
	IgnoreField     bool // supplemental kan_reflection_ignore_struct_field, SPEC_FULL §3
	ExternalPointer bool

	HasDynamicArrayType bool
	DynamicArrayType    TypeInfo

	ExplicitInit       string
	HasExplicitInit    bool
	ExplicitShutdown   string
	HasExplicitShutdown bool

	SizeField               string
	HasSizeField            bool
	VisibilityConditionField    string
	HasVisibilityConditionField bool

	VisibilityConditionValues []VisibilityConditionValue
	TopLevel                  []TopLevelMeta
	Secondary                 []SecondaryLevelMeta
}

// Empty reports whether the store holds no accumulated meta at all, which
// must hold at every input-file switch boundary (§3.1 invariant).
func (m *MetaStore) Empty() bool {
	return !m.Export && !m.Flags && !m.Ignore && !m.IgnoreField && !m.ExternalPointer &&
		!m.HasDynamicArrayType && !m.HasExplicitInit && !m.HasExplicitShutdown &&
		!m.HasSizeField && !m.HasVisibilityConditionField &&
		len(m.VisibilityConditionValues) == 0 && len(m.TopLevel) == 0 && len(m.Secondary) == 0
}

// Reset clears the store, to be called at input-file switches and after
// every successful top-level declaration.
func (m *MetaStore) Reset() {
	*m = MetaStore{}
}
