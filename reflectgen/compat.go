package reflectgen

import "fmt"

// DeclKind identifies which declaration a MetaStore's accumulated pragmas
// are about to be attached to, for the purposes of the meta compatibility
// matrix (spec §4.1.4). The full table is mirrored here verbatim from the
// repository's rules rather than re-derived per call site.
type DeclKind int

const (
	DeclTypedef DeclKind = iota
	DeclEnum
	DeclEnumValue
	DeclStruct
	DeclStructField
	DeclFunction
	DeclFunctionArgument
	DeclSymbol
)

// checkCompatible enforces the per-declaration-kind meta compatibility
// table. Any incompatible combination is a fatal diagnostic pointing at
// the declaration (§4.1.4); the caller attaches file/line/column.
func checkCompatible(kind DeclKind, m *MetaStore) error {
	switch kind {
	case DeclTypedef:
		if !m.Empty() {
			return fmt.Errorf("typedef declarations accept no reflection meta")
		}

	case DeclEnum:
		if m.Export || m.ExternalPointer || m.HasDynamicArrayType || m.HasExplicitInit ||
			m.HasExplicitShutdown || m.HasSizeField || m.HasVisibilityConditionField ||
			len(m.VisibilityConditionValues) > 0 {
			return fmt.Errorf("enum declarations only accept kan_reflection_flags, kan_reflection_ignore and kan_reflection_enum_meta")
		}
		if err := onlyTopLevel(m, TopLevelEnum); err != nil {
			return err
		}
		if err := onlySecondary(m); err != nil {
			return err
		}

	case DeclEnumValue:
		if m.Export || m.Flags || m.ExternalPointer || m.HasDynamicArrayType ||
			m.HasExplicitInit || m.HasExplicitShutdown || m.HasSizeField ||
			m.HasVisibilityConditionField || len(m.VisibilityConditionValues) > 0 ||
			len(m.TopLevel) > 0 {
			return fmt.Errorf("enum values accept no meta other than kan_reflection_ignore")
		}

	case DeclStruct:
		if m.Export || m.Flags || m.ExternalPointer || m.HasDynamicArrayType ||
			m.HasSizeField || m.HasVisibilityConditionField || len(m.VisibilityConditionValues) > 0 {
			return fmt.Errorf("struct declarations only accept kan_reflection_ignore, explicit init/shutdown functors and kan_reflection_struct_meta")
		}
		if err := onlyTopLevel(m, TopLevelStruct); err != nil {
			return err
		}
		if err := onlySecondary(m); err != nil {
			return err
		}

	case DeclStructField:
		if m.Export || m.Flags || m.HasExplicitInit || m.HasExplicitShutdown || len(m.TopLevel) > 0 {
			return fmt.Errorf("struct fields reject function- and struct-declaration-level meta")
		}
		if err := onlySecondary(m, SecondaryStructField); err != nil {
			return err
		}

	case DeclFunction:
		if m.Flags || m.Ignore || m.ExternalPointer || m.HasDynamicArrayType || m.HasExplicitInit ||
			m.HasExplicitShutdown || m.HasSizeField || m.HasVisibilityConditionField ||
			len(m.VisibilityConditionValues) > 0 {
			return fmt.Errorf("functions reject struct-oriented meta")
		}
		if err := onlyTopLevel(m, TopLevelFunction); err != nil {
			return err
		}
		if err := onlySecondary(m); err != nil {
			return err
		}

	case DeclFunctionArgument:
		if m.Export || m.Flags || m.Ignore || m.ExternalPointer || m.HasDynamicArrayType ||
			m.HasExplicitInit || m.HasExplicitShutdown || m.HasSizeField ||
			m.HasVisibilityConditionField || len(m.VisibilityConditionValues) > 0 ||
			len(m.TopLevel) > 0 {
			return fmt.Errorf("function arguments reject struct-oriented meta")
		}
		if err := onlySecondary(m, SecondaryFunctionArgument); err != nil {
			return err
		}

	case DeclSymbol:
		if m.Flags || m.Ignore || m.ExternalPointer || m.HasDynamicArrayType ||
			m.HasExplicitInit || m.HasExplicitShutdown || m.HasSizeField ||
			m.HasVisibilityConditionField || len(m.VisibilityConditionValues) > 0 {
			return fmt.Errorf("symbols only accept kan_reflection_export and meta attachments")
		}
	}
	return nil
}

func onlyTopLevel(m *MetaStore, allowed TopLevelMetaKind) error {
	for _, tl := range m.TopLevel {
		if tl.Kind != allowed {
			return fmt.Errorf("meta attachment kind mismatch for this declaration")
		}
	}
	return nil
}

func onlySecondary(m *MetaStore, allowed ...SecondaryMetaKind) error {
	if len(allowed) == 0 {
		if len(m.Secondary) > 0 {
			return fmt.Errorf("this declaration accepts no secondary-level meta")
		}
		return nil
	}
	for _, sm := range m.Secondary {
		ok := false
		for _, a := range allowed {
			if sm.Kind == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("meta attachment kind mismatch for this declaration")
		}
	}
	return nil
}
