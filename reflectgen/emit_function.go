package reflectgen

import (
	"fmt"
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

type funcArg struct {
	Name string
	Type TypeInfo
}

// parseFunction implements spec §4.1.3/§4.1.7 for a function declaration
// whose argument list has just been entered (InsideFunctionArgs).
func (p *Parser) parseFunction(startPos diag.Position, retType TypeInfo, name string) error {
	open := p.lex.Next() // '('
	_ = open

	// Meta gathered before the declaration belongs to the function itself,
	// not to its first argument.
	funcMeta := p.meta
	p.meta.Reset()

	var args []funcArg
	variadic := false

	for {
		t := p.lex.Peek()
		if t.Kind == TokPunct && t.Text == ")" {
			p.lex.Next()
			break
		}
		if t.Kind == TokPunct && t.Text == "," {
			p.lex.Next()
			continue
		}
		if t.Kind == TokPunct && t.Text == "." {
			// '...' variadic marker, consumed dot-by-dot
			p.lex.Next()
			p.lex.Next()
			p.lex.Next()
			variadic = true
			continue
		}
		if t.Kind == TokIdent && t.Text == "void" && p.lex.PeekN(1).Kind == TokPunct && p.lex.PeekN(1).Text == ")" {
			p.lex.Next()
			continue
		}

		argMeta := p.meta
		p.meta.Reset()
		typ, err := parseTypeRef(p.lex)
		if err != nil {
			return err
		}
		argName := ""
		if nt := p.lex.Peek(); nt.Kind == TokIdent {
			p.lex.Next()
			argName = nt.Text
		}
		if err := checkCompatible(DeclFunctionArgument, &argMeta); err != nil {
			return &diag.Error{Pos: t.Pos, Message: err.Error()}
		}
		args = append(args, funcArg{Name: argName, Type: typ})
	}

	semi := p.lex.Peek()
	if semi.Kind == TokPunct && semi.Text == ";" {
		p.lex.Next()
	} else if semi.Kind == TokPunct && semi.Text == "{" {
		// inline body: skip it verbatim (function bodies are never
		// reflected, only their prototypes are).
		if err := p.skipBalancedBraces(); err != nil {
			return err
		}
	}

	if err := checkCompatible(DeclFunction, &funcMeta); err != nil {
		return &diag.Error{Pos: startPos, Message: err.Error()}
	}

	if variadic && funcMeta.Export {
		return diag.Errorf(startPos, "variadic functions cannot be reflected")
	}

	export := funcMeta.Export
	topMeta := funcMeta.TopLevel
	p.meta.Reset()

	if export && p.inTarget() {
		p.emitFunctionReflection(name, retType, args, topMeta)
	}
	return nil
}

// skipBalancedBraces consumes a '{' ... '}' body, assuming the opening
// brace has not yet been consumed.
func (p *Parser) skipBalancedBraces() error {
	open := p.lex.Next()
	if open.Kind != TokPunct || open.Text != "{" {
		return diag.Errorf(open.Pos, "expected '{'")
	}
	depth := 1
	for depth > 0 {
		t := p.lex.Next()
		if t.Kind == TokEOF {
			return diag.Errorf(t.Pos, "unexpected end of input inside function body")
		}
		if t.Kind == TokPunct && t.Text == "{" {
			depth++
		}
		if t.Kind == TokPunct && t.Text == "}" {
			depth--
		}
	}
	return nil
}

func (p *Parser) emitFunctionReflection(name string, retType TypeInfo, args []funcArg, topMeta []TopLevelMeta) {
	s := p.sections

	fmt.Fprintf(&s.GeneratedFunctions, "struct %s_call_arguments_t {\n", name)
	for i, a := range args {
		fmt.Fprintf(&s.GeneratedFunctions, "    %s%s %s_%d;\n", constPrefix(a.Type), typeSpelling(a.Type), strings.Repeat("*", int(a.Type.PointerLevel)), i)
	}
	s.GeneratedFunctions.WriteString("};\n\n")

	fmt.Fprintf(&s.GeneratedFunctions, "static void call_functor_%s (void *return_address, void *arguments_address) {\n", name)
	fmt.Fprintf(&s.GeneratedFunctions, "    struct %s_call_arguments_t *arguments = arguments_address;\n", name)
	callExpr := name + "("
	for i := range args {
		if i > 0 {
			callExpr += ", "
		}
		callExpr += fmt.Sprintf("arguments->_%d", i)
	}
	callExpr += ")"
	if retType.Name == "void" && retType.PointerLevel == 0 {
		fmt.Fprintf(&s.GeneratedFunctions, "    %s;\n", callExpr)
	} else {
		fmt.Fprintf(&s.GeneratedFunctions, "    *((%s%s%s *) return_address) = %s;\n",
			constPrefix(retType), typeSpelling(retType), strings.Repeat("*", int(retType.PointerLevel)), callExpr)
	}
	s.GeneratedFunctions.WriteString("}\n\n")

	fmt.Fprintf(&s.GeneratedSymbols, "static struct kan_reflection_argument_t %s_reflection_arguments[] = {\n", name)
	for i, a := range args {
		arch := classifyArchetype(a.Type, false)
		fmt.Fprintf(&s.GeneratedSymbols, "    {.name = kan_string_intern (\"_%d\"), .size = sizeof (((struct %s_call_arguments_t *) 0)->_%d), .archetype = %s},\n",
			i, name, i, arch)
	}
	s.GeneratedSymbols.WriteString("};\n\n")

	fmt.Fprintf(&s.Bootstrap,
		"static struct kan_reflection_function_t reflection_%s_data = {\n"+
			"    .name = kan_string_intern (\"%s\"),\n"+
			"    .call = call_functor_%s,\n"+
			"    .arguments_count = %d,\n"+
			"    .arguments = %s_reflection_arguments,\n"+
			"};\n\n",
		name, name, name, len(args), name)

	for _, tm := range topMeta {
		fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_function_meta (registry, kan_string_intern (\"%s\"), kan_string_intern (\"%s\"), &%s);\n",
			name, tm.MetaIdent, tm.MetaIdent)
	}
	fmt.Fprintf(&s.Registrar, "kan_reflection_registry_add_function (registry, &reflection_%s_data);\n", name)

	p.maybeRegisterLifetimeFunctor(name, args)
}

// maybeRegisterLifetimeFunctor implements the §4.1.7 heuristic: a function
// named TYPENAME_init or TYPENAME_shutdown whose first argument is a
// pointer to a struct named TYPENAME (after stripping a trailing "_t")
// also gets registered as that type's lifetime functor.
func (p *Parser) maybeRegisterLifetimeFunctor(name string, args []funcArg) {
	if len(args) == 0 {
		return
	}
	first := args[0].Type
	if first.Group != GroupStruct || first.PointerLevel != 1 {
		return
	}

	var suffix, kind string
	switch {
	case strings.HasSuffix(name, "_init"):
		suffix, kind = "_init", "init"
	case strings.HasSuffix(name, "_shutdown"):
		suffix, kind = "_shutdown", "shutdown"
	default:
		return
	}

	typeName := strings.TrimSuffix(first.Name, "_t")
	prefix := strings.TrimSuffix(name, suffix)
	if prefix != typeName && prefix != first.Name {
		return
	}

	fmt.Fprintf(&p.sections.GenerationControl, "#define %s_%s_lifetime_functor lifetime_functor_%s\n", first.Name, kind, name)
}
