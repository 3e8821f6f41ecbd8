package reflectgen

import (
	"fmt"
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

type structField struct {
	Name     string
	Type     TypeInfo
	IsUnion  bool
	UnionTag int // which union arm this field belongs to, 0 if not in a union
	Ignore   bool

	HasSizeField        bool
	SizeField           string
	HasVisibilityField  bool
	VisibilityField     string
	VisibilityValues    []string
}

// parseStructOrDecl disambiguates "struct NAME {" (a struct declaration)
// from a struct-typed reference that starts a function or symbol
// declaration (e.g. "struct P *make_p(void);").
func (p *Parser) parseStructOrDecl() error {
	if p.lex.PeekN(1).Kind == TokIdent && p.lex.PeekN(2).Kind == TokPunct && p.lex.PeekN(2).Text == "{" {
		return p.parseStruct()
	}
	return p.parseFunctionOrSymbol()
}

// parseStruct implements spec §4.1.3/§4.1.6 for `struct NAME {` entry
// through its closing `}`.
func (p *Parser) parseStruct() error {
	kw := p.lex.Next() // 'struct'
	nameTok := p.lex.Next()
	name := nameTok.Text
	brace := p.lex.Next()
	if brace.Kind != TokPunct || brace.Text != "{" {
		return diag.Errorf(brace.Pos, "expected '{' after struct %s", name)
	}

	if err := checkCompatible(DeclStruct, &p.meta); err != nil {
		return &diag.Error{Pos: kw.Pos, Message: err.Error()}
	}
	ignore := p.meta.Ignore
	explicitInit, hasInit := p.meta.ExplicitInit, p.meta.HasExplicitInit
	explicitShutdown, hasShutdown := p.meta.ExplicitShutdown, p.meta.HasExplicitShutdown
	topMeta := p.meta.TopLevel

	fields, err := p.parseStructFields(name)
	if err != nil {
		return err
	}

	closing := p.lex.Next()
	if closing.Kind != TokPunct || closing.Text != "}" {
		return diag.Errorf(closing.Pos, "expected '}' to close struct %s", name)
	}
	semi := p.lex.Peek()
	if semi.Kind == TokPunct && semi.Text == ";" {
		p.lex.Next()
	}

	if p.isObjectTarget() {
		p.emitStructDeclarationText(name, fields)
	}

	if !ignore && p.inTarget() && len(fields) > 0 {
		if hasInit {
			fmt.Fprintf(&p.sections.GenerationControl, "#define %s_init_lifetime_functor lifetime_functor_%s\n", name, explicitInit)
		}
		if hasShutdown {
			fmt.Fprintf(&p.sections.GenerationControl, "#define %s_shutdown_lifetime_functor lifetime_functor_%s\n", name, explicitShutdown)
		}
		p.emitStructReflection(name, fields, topMeta)
	}

	p.meta.Reset()
	return nil
}

// parseStructFields reads fields (and one level of union) until the
// matching '}', recording per-field meta captured since the previous
// field.
func (p *Parser) parseStructFields(structName string) ([]structField, error) {
	var fields []structField
	unionTag := 0

	for {
		t := p.lex.Peek()
		if t.Kind == TokPunct && t.Text == "}" {
			return fields, nil
		}
		if t.Kind == TokPragma {
			p.lex.Next()
			ld, hadLine, err := applyPragma(t.Text, t.Pos, &p.meta)
			if err != nil {
				return nil, err
			}
			if hadLine {
				if err := p.switchTarget(ld, t.Pos); err != nil {
					return nil, err
				}
			}
			continue
		}
		if t.Kind == TokIdent && t.Text == "union" {
			unionTag++
			p.lex.Next()
			brace := p.lex.Next()
			if brace.Kind != TokPunct || brace.Text != "{" {
				return nil, diag.Errorf(brace.Pos, "expected '{' after union")
			}
			for {
				pk := p.lex.Peek()
				if pk.Kind == TokPunct && pk.Text == "}" {
					p.lex.Next()
					break
				}
				if pk.Kind == TokPragma {
					p.lex.Next()
					ld, hadLine, err := applyPragma(pk.Text, pk.Pos, &p.meta)
					if err != nil {
						return nil, err
					}
					if hadLine {
						if err := p.switchTarget(ld, pk.Pos); err != nil {
							return nil, err
						}
					}
					continue
				}
				f, err := p.parseOneField(structName)
				if err != nil {
					return nil, err
				}
				f.IsUnion = true
				f.UnionTag = unionTag
				fields = append(fields, f)
			}
			semi := p.lex.Peek()
			if semi.Kind == TokPunct && semi.Text == ";" {
				p.lex.Next()
			}
			continue
		}

		f, err := p.parseOneField(structName)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
}

// parseOneField parses one "TYPE NAME[array_suffix];" field, applying and
// resetting field-scoped meta.
func (p *Parser) parseOneField(structName string) (structField, error) {
	typ, err := parseTypeRef(p.lex)
	if err != nil {
		return structField{}, err
	}
	nameTok := p.lex.Next()
	if nameTok.Kind != TokIdent {
		return structField{}, diag.Errorf(nameTok.Pos, "expected field name in struct %s", structName)
	}

	// array suffix: one or more [N] or [] groups, recorded as raw text.
	var arraySuffix strings.Builder
	for {
		t := p.lex.Peek()
		if t.Kind != TokPunct || t.Text != "[" {
			break
		}
		p.lex.Next()
		arraySuffix.WriteString("[")
		for {
			t2 := p.lex.Next()
			arraySuffix.WriteString(t2.Text)
			if t2.Kind == TokPunct && t2.Text == "]" {
				break
			}
		}
	}
	typ.ArraySuffix = arraySuffix.String()

	semi := p.lex.Next()
	if semi.Kind != TokPunct || semi.Text != ";" {
		return structField{}, diag.Errorf(semi.Pos, "expected ';' after field %s.%s", structName, nameTok.Text)
	}

	if err := checkCompatible(DeclStructField, &p.meta); err != nil {
		return structField{}, &diag.Error{Pos: nameTok.Pos, Message: err.Error()}
	}

	f := structField{
		Name:               nameTok.Text,
		Type:               typ,
		Ignore:             p.meta.IgnoreField,
		HasSizeField:       p.meta.HasSizeField,
		SizeField:          p.meta.SizeField,
		HasVisibilityField: p.meta.HasVisibilityConditionField,
		VisibilityField:    p.meta.VisibilityConditionField,
	}
	for _, v := range p.meta.VisibilityConditionValues {
		f.VisibilityValues = append(f.VisibilityValues, v.Token)
	}
	p.meta.Reset()
	return f, nil
}

func (p *Parser) emitStructDeclarationText(name string, fields []structField) {
	fmt.Fprintf(&p.sections.Declaration, "struct %s {\n", name)
	openUnion := 0
	for _, f := range fields {
		if f.IsUnion && openUnion != f.UnionTag {
			if openUnion != 0 {
				p.sections.Declaration.WriteString("    };\n")
			}
			p.sections.Declaration.WriteString("    union {\n")
			openUnion = f.UnionTag
		} else if !f.IsUnion && openUnion != 0 {
			p.sections.Declaration.WriteString("    };\n")
			openUnion = 0
		}
		indent := "    "
		if f.IsUnion {
			indent = "        "
		}
		fmt.Fprintf(&p.sections.Declaration, "%s%s%s %s%s;\n", indent, constPrefix(f.Type), typeSpelling(f.Type), strings.Repeat("*", int(f.Type.PointerLevel)), f.Name+f.Type.ArraySuffix)
	}
	if openUnion != 0 {
		p.sections.Declaration.WriteString("    };\n")
	}
	p.sections.Declaration.WriteString("};\n")
}

func constPrefix(t TypeInfo) string {
	if t.IsConst {
		return "const "
	}
	return ""
}

func typeSpelling(t TypeInfo) string {
	switch t.Group {
	case GroupStruct:
		return "struct " + t.Name
	case GroupEnum:
		return "enum " + t.Name
	default:
		return t.Name
	}
}

func (p *Parser) emitStructReflection(name string, fields []structField, topMeta []TopLevelMeta) {
	s := p.sections

	visIndex := make(map[string]int) // field name -> field index, for every non-ignored field
	fieldNum := 0
	for _, f := range fields {
		if f.Ignore {
			continue
		}
		fmt.Fprintf(&s.GenerationControl, "#define %s_field_%s_field_index %d\n", name, f.Name, fieldNum)
		visIndex[f.Name] = fieldNum
		fieldNum++
	}

	// Visibility-condition value arrays are emitted once per distinct
	// (condition field, values) pair and reused by index, per the "Conditions
	// are shared (generated once)" rule (spec §4.1.6 point 3).
	condArrays := make(map[string]string)
	for _, f := range fields {
		if f.Ignore || !f.HasVisibilityField {
			continue
		}
		key := f.VisibilityField + "|" + strings.Join(f.VisibilityValues, ",")
		if _, ok := condArrays[key]; ok {
			continue
		}
		arrName := fmt.Sprintf("%s_field_%s_visibility_values", name, f.Name)
		condArrays[key] = arrName
		fmt.Fprintf(&s.GeneratedSymbols, "static int64_t %s[] = {%s};\n", arrName, strings.Join(f.VisibilityValues, ", "))
	}

	fmt.Fprintf(&s.GeneratedSymbols, "static struct kan_reflection_field_t %s_reflection_fields[] = {\n", name)
	for _, f := range fields {
		if f.Ignore {
			continue
		}
		p.emitOneFieldDescriptor(name, f, visIndex, condArrays)
	}
	s.GeneratedSymbols.WriteString("};\n\n")

	fmt.Fprintf(&s.GeneratedSymbols,
		"static struct kan_reflection_struct_t %s_reflection_struct = {\n"+
			"    .name = kan_string_intern (\"%s\"),\n"+
			"    .size = sizeof (struct %s),\n"+
			"    .alignment = _Alignof (struct %s),\n"+
			"    .fields_count = %d,\n"+
			"    .fields = %s_reflection_fields,\n"+
			"};\n\n",
		name, name, name, name, fieldNum, name)

	fmt.Fprintf(&s.Bootstrap, "static inline void %s_reflection_bootstrap (void) {}\n", name)

	for _, tm := range topMeta {
		fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_struct_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
			name, tm.MetaIdent, tm.MetaIdent)
	}
	fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_struct (registry, &%s_reflection_struct);\n", name)
}

func (p *Parser) emitOneFieldDescriptor(structName string, f structField, visIndex map[string]int, condArrays map[string]string) {
	s := p.sections
	arch := classifyArchetype(f.Type, false)
	if f.Type.ArraySuffix != "" {
		arch = ArchetypeInlineArray
	}

	fmt.Fprintf(&s.GeneratedSymbols, "    {\n")
	fmt.Fprintf(&s.GeneratedSymbols, "        .name = kan_string_intern (\"%s\"),\n", f.Name)
	fmt.Fprintf(&s.GeneratedSymbols, "        .offset = offsetof (struct %s, %s),\n", structName, f.Name)
	fmt.Fprintf(&s.GeneratedSymbols, "        .size = sizeof (((struct %s *) 0)->%s),\n", structName, f.Name)
	fmt.Fprintf(&s.GeneratedSymbols, "        .archetype = %s,\n", arch)

	switch arch {
	case ArchetypeStructPointer, ArchetypeStruct:
		fmt.Fprintf(&s.GeneratedSymbols, "        .archetype_struct = {.type_name = kan_string_intern (\"%s\")},\n", f.Type.Name)
	case ArchetypeEnum:
		fmt.Fprintf(&s.GeneratedSymbols, "        .archetype_enum = {.type_name = kan_string_intern (\"%s\")},\n", f.Type.Name)
	case ArchetypeDynamicArray:
		fmt.Fprintf(&s.GeneratedSymbols, "        .archetype_dynamic_array = {.item_archetype = %s},\n", ArchetypeSigned)
	}

	if f.HasSizeField {
		if idx, ok := visIndex[f.SizeField]; ok {
			fmt.Fprintf(&s.GeneratedSymbols, "        .size_field_index = %d,\n", idx)
		}
	}
	if f.HasVisibilityField {
		if idx, ok := visIndex[f.VisibilityField]; ok {
			key := f.VisibilityField + "|" + strings.Join(f.VisibilityValues, ",")
			fmt.Fprintf(&s.GeneratedSymbols, "        .visibility_condition_field_index = %d,\n", idx)
			fmt.Fprintf(&s.GeneratedSymbols, "        .visibility_condition_values_count = %d,\n", len(f.VisibilityValues))
			fmt.Fprintf(&s.GeneratedSymbols, "        .visibility_condition_values = %s,\n", condArrays[key])
		}
	}

	s.GeneratedSymbols.WriteString("    },\n")
}
