package reflectgen

import (
	"fmt"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// parseSymbol implements spec §4.1.3/§4.1.8 for a global variable
// declaration whose type and name have already been consumed.
func (p *Parser) parseSymbol(startPos diag.Position, typ TypeInfo, name string) error {
	for {
		t := p.lex.Peek()
		if t.Kind == TokPunct && t.Text == "[" {
			p.lex.Next()
			for {
				t2 := p.lex.Next()
				if t2.Kind == TokPunct && t2.Text == "]" {
					break
				}
			}
			continue
		}
		break
	}

	if eq := p.lex.Peek(); eq.Kind == TokPunct && eq.Text == "=" {
		p.lex.Next()
		depth := 0
	initLoop:
		for {
			t := p.lex.Next()
			if t.Kind == TokEOF {
				return diag.Errorf(t.Pos, "unexpected end of input in symbol initializer for %s", name)
			}
			if t.Kind == TokPunct {
				switch t.Text {
				case "{", "(", "[":
					depth++
				case "}", ")", "]":
					depth--
				case ";":
					if depth <= 0 {
						break initLoop
					}
				}
			}
		}
	} else if semi := p.lex.Peek(); semi.Kind == TokPunct && semi.Text == ";" {
		p.lex.Next()
	}

	if err := checkCompatible(DeclSymbol, &p.meta); err != nil {
		return &diag.Error{Pos: startPos, Message: err.Error()}
	}

	export := p.meta.Export
	topLevel := p.meta.TopLevel
	secondary := p.meta.Secondary
	p.meta.Reset()

	if !export || !p.inTarget() {
		return nil
	}

	if typ.Group != GroupStruct || typ.PointerLevel != 0 {
		return diag.Errorf(startPos, "only struct symbols can be exported")
	}

	for _, tm := range topLevel {
		kind := "enum"
		switch tm.Kind {
		case TopLevelStruct:
			kind = "struct"
		case TopLevelFunction:
			kind = "function"
		}
		fmt.Fprintf(&p.sections.Registrar,
			"kan_reflection_registry_add_%s_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
			kind, tm.MetaIdent, typ.Name, name)
	}

	for _, sm := range secondary {
		var thirdKey string
		switch sm.Kind {
		case SecondaryEnumValue, SecondaryStructField, SecondaryFunctionArgument:
			thirdKey = sm.SecondaryName
		}
		var kind string
		switch sm.Kind {
		case SecondaryEnumValue:
			kind = "enum_value"
		case SecondaryStructField:
			kind = "struct_field"
		case SecondaryFunctionArgument:
			kind = "function_argument"
		default:
			kind = "symbol"
		}
		if thirdKey != "" {
			fmt.Fprintf(&p.sections.Registrar,
				"kan_reflection_registry_add_%s_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
				kind, sm.TopName, thirdKey, typ.Name, name)
		} else {
			fmt.Fprintf(&p.sections.Registrar,
				"kan_reflection_registry_add_%s_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
				kind, sm.TopName, typ.Name, name)
		}
	}
	return nil
}
