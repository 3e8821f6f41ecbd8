package reflectgen

import (
	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// parseFunctionOrSymbol implements the two remaining TopLevel productions
// from spec §4.1.3:
//
//	[__declspec(X)] [extern] [static] [inline] TYPE NAME (            -> function
//	[__declspec(X)] [extern] [static] TYPE NAME [array_suffix] [= expr]; -> symbol
func (p *Parser) parseFunctionOrSymbol() error {
	start := p.lex.Peek()
	p.skipQualifiers()

	retType, err := parseTypeRef(p.lex)
	if err != nil {
		return err
	}

	nameTok := p.lex.Next()
	if nameTok.Kind != TokIdent {
		return diag.Errorf(nameTok.Pos, "expected a declared name")
	}

	next := p.lex.Peek()
	if next.Kind == TokPunct && next.Text == "(" {
		return p.parseFunction(start.Pos, retType, nameTok.Text)
	}
	return p.parseSymbol(start.Pos, retType, nameTok.Text)
}

func (p *Parser) skipQualifiers() {
	for {
		t := p.lex.Peek()
		if t.Kind != TokIdent {
			return
		}
		switch t.Text {
		case "extern", "static", "inline":
			p.lex.Next()
			continue
		case "__declspec":
			p.lex.Next()
			paren := p.lex.Peek()
			if paren.Kind == TokPunct && paren.Text == "(" {
				p.lex.Next()
				depth := 1
				for depth > 0 {
					tt := p.lex.Next()
					if tt.Kind == TokEOF {
						return
					}
					if tt.Kind == TokPunct && tt.Text == "(" {
						depth++
					}
					if tt.Kind == TokPunct && tt.Text == ")" {
						depth--
					}
				}
			}
			continue
		}
		return
	}
}
