package reflectgen

import (
	"fmt"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

type enumValue struct {
	Name    string
	HasExpr bool
	Expr    string
}

// parseEnum implements spec §4.1.3/§4.1.5 for `enum NAME {` entry through
// its closing `}`.
func (p *Parser) parseEnum() error {
	kw := p.lex.Next() // 'enum'
	nameTok := p.lex.Next()
	if nameTok.Kind != TokIdent {
		return diag.Errorf(nameTok.Pos, "expected enum name")
	}
	name := nameTok.Text

	brace := p.lex.Next()
	if brace.Kind != TokPunct || brace.Text != "{" {
		return diag.Errorf(brace.Pos, "expected '{' after enum %s", name)
	}

	if err := checkCompatible(DeclEnum, &p.meta); err != nil {
		return &diag.Error{Pos: kw.Pos, Message: err.Error()}
	}
	ignore := p.meta.Ignore
	flags := p.meta.Flags
	topMeta := p.meta.TopLevel

	var values []enumValue
	for {
		t := p.lex.Peek()
		if t.Kind == TokPunct && t.Text == "}" {
			break
		}
		if t.Kind != TokIdent {
			return diag.Errorf(t.Pos, "expected enum value identifier")
		}
		p.lex.Next()
		v := enumValue{Name: t.Text}

		eq := p.lex.Peek()
		if eq.Kind == TokPunct && eq.Text == "=" {
			p.lex.Next()
			expr := p.lex.Next()
			v.HasExpr = true
			v.Expr = expr.Text
		}
		values = append(values, v)

		comma := p.lex.Peek()
		if comma.Kind == TokPunct && comma.Text == "," {
			p.lex.Next()
			continue
		}
		break
	}
	closing := p.lex.Next()
	if closing.Kind != TokPunct || closing.Text != "}" {
		return diag.Errorf(closing.Pos, "expected '}' to close enum %s", name)
	}
	semi := p.lex.Peek()
	if semi.Kind == TokPunct && semi.Text == ";" {
		p.lex.Next()
	}

	if p.isObjectTarget() {
		fmt.Fprintf(&p.sections.Declaration, "enum %s {\n", name)
		for _, v := range values {
			if v.HasExpr {
				fmt.Fprintf(&p.sections.Declaration, "    %s = %s,\n", v.Name, v.Expr)
			} else {
				fmt.Fprintf(&p.sections.Declaration, "    %s,\n", v.Name)
			}
		}
		p.sections.Declaration.WriteString("};\n")
	}

	if !ignore && len(values) > 0 && p.inTarget() {
		p.emitEnumReflection(name, flags, values, topMeta)
	}

	p.meta.Reset()
	return nil
}

func (p *Parser) emitEnumReflection(name string, flags bool, values []enumValue, topMeta []TopLevelMeta) {
	s := p.sections

	fmt.Fprintf(&s.GeneratedSymbols, "static struct kan_reflection_enum_value_t %s_reflection_values[] = {\n", name)
	for _, v := range values {
		fmt.Fprintf(&s.GeneratedSymbols, "    {.name = kan_string_intern (\"%s\"), .value = (int64_t) %s},\n", v.Name, v.Name)
	}
	s.GeneratedSymbols.WriteString("};\n\n")

	fmt.Fprintf(&s.GeneratedSymbols,
		"static struct kan_reflection_enum_t %s_reflection_enum = {\n"+
			"    .name = kan_string_intern (\"%s\"),\n"+
			"    .flags = %s,\n"+
			"    .values_count = %d,\n"+
			"    .values = %s_reflection_values,\n"+
			"};\n\n",
		name, name, cBool(flags), len(values), name)

	fmt.Fprintf(&s.Bootstrap, "static inline void %s_reflection_bootstrap (void) {}\n", name)

	for _, tm := range topMeta {
		fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_enum_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
			name, tm.MetaIdent, tm.MetaIdent)
	}
	fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_enum (registry, &%s_reflection_enum);\n", name)
}

func cBool(b bool) string {
	if b {
		return "KAN_TRUE"
	}
	return "KAN_FALSE"
}
