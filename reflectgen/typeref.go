package reflectgen

import (
	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// scalarLeadWords lists leading words that continue to consume further
// scalar-keyword words from scalarContWords (e.g. "unsigned" "int",
// "long" "long").
var scalarLeadWords = map[string]bool{
	"unsigned": true, "signed": true, "long": true, "short": true,
}
var scalarContWords = map[string]bool{
	"int": true, "long": true, "short": true, "char": true, "double": true,
}

// parseTypeRef parses a simplified C type reference: optional "const",
// then either "struct NAME"/"enum NAME", a scalar keyword sequence, or a
// plain identifier (typedef name), followed by any number of '*'.
func parseTypeRef(l *lexer) (TypeInfo, error) {
	info := TypeInfo{Group: GroupValue}

	for {
		t := l.Peek()
		if t.Kind == TokIdent && t.Text == "const" {
			l.Next()
			info.IsConst = true
			continue
		}
		break
	}

	t := l.Next()
	if t.Kind != TokIdent {
		return info, diag.Errorf(t.Pos, "expected a type name")
	}

	switch t.Text {
	case "struct":
		info.Group = GroupStruct
		name := l.Next()
		info.Name = name.Text
	case "enum":
		info.Group = GroupEnum
		name := l.Next()
		info.Name = name.Text
	default:
		name := t.Text
		if scalarLeadWords[t.Text] {
			for {
				nt := l.Peek()
				if nt.Kind == TokIdent && scalarContWords[nt.Text] {
					l.Next()
					name += " " + nt.Text
					continue
				}
				break
			}
		}
		info.Name = name
	}

	for {
		t := l.Peek()
		if t.Kind == TokPunct && t.Text == "*" {
			l.Next()
			info.PointerLevel++
			continue
		}
		if t.Kind == TokIdent && t.Text == "const" {
			l.Next()
			continue
		}
		break
	}

	return info, nil
}
