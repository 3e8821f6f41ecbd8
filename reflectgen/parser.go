package reflectgen

import (
	"fmt"
	"os"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// Parser drives the top-level state machine described in spec §4.1.3. It
// owns the Sections being accumulated across every input file.
type Parser struct {
	targets  *TargetSet
	included *IncludedFile
	sections *Sections

	meta MetaStore

	currentPath       string
	currentTarget     *TargetFile // nil when the active file is not in T
	currentInputIndex int
	everEnteredTarget bool // "we were previously in a T file" flag, file-scoped

	lex *lexer
}

// NewParser creates a Parser that will attribute declarations against the
// given target set.
func NewParser(targets *TargetSet) *Parser {
	return &Parser{
		targets:  targets,
		included: NewIncludedFile(),
		sections: &Sections{},
	}
}

// Run parses every input file in order and returns the assembled product
// file contents.
func (p *Parser) Run(inputs []string) (string, error) {
	for idx, path := range inputs {
		if err := p.runOne(idx, path); err != nil {
			return "", err
		}
	}
	return p.sections.Assemble(), nil
}

func (p *Parser) runOne(index int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	p.currentInputIndex = index
	p.currentPath = path
	p.currentTarget = nil
	p.everEnteredTarget = false
	p.meta.Reset()

	tok := NewTokenizer(f, path)
	p.lex = newLexer(tok)

	for {
		t := p.lex.Peek()
		if t.Kind == TokEOF {
			return nil
		}
		if err := p.topLevel(); err != nil {
			return err
		}
	}
}

// inTarget reports whether declarations at the current position should be
// emitted, per the attribution rule in §4.1.3.
func (p *Parser) inTarget() bool {
	return p.currentTarget != nil && p.currentTarget.Kind != KindUnknown
}

func (p *Parser) isObjectTarget() bool {
	return p.inTarget() && p.currentTarget.Kind == KindObject
}

// switchTarget applies a recognized line directive, implementing the
// attribution and #include-emission rules of §4.1.3.
func (p *Parser) switchTarget(ld lineDirective, pos diag.Position) error {
	wasObject := p.isObjectTarget()
	p.currentPath = ld.path

	tf, ok := p.targets.Lookup(ld.path)
	if !ok {
		p.currentTarget = nil
	} else {
		if tf.FirstInputIndex == -1 {
			tf.FirstInputIndex = p.currentInputIndex
		}
		if tf.FirstInputIndex != p.currentInputIndex {
			// attributed to a different (earlier) input already
			p.currentTarget = nil
		} else {
			p.currentTarget = tf
		}
	}

	nowIn := p.inTarget()

	switch {
	case nowIn && !p.everEnteredTarget && p.currentTarget.Kind == KindHeader:
		// entering a T header for the first time in this translation
		// unit: include it.
		if p.included.AddOnce(ld.path) && confirmRegularFile(ld.path) {
			fmt.Fprintf(&p.sections.Declaration, "#include \"%s\"\n", ld.path)
		}
		p.everEnteredTarget = true
	case nowIn:
		p.everEnteredTarget = true
	case wasObject && !nowIn && !ok:
		// leaving a T object file into a non-T file: include that file.
		if p.included.AddOnce(ld.path) && confirmRegularFile(ld.path) {
			fmt.Fprintf(&p.sections.Declaration, "#include \"%s\"\n", ld.path)
		}
	}

	if !p.meta.Empty() {
		return diag.Errorf(pos, "meta must be empty at an input-file switch boundary")
	}
	return nil
}

// topLevel consumes exactly one top-level construct: a pragma, a typedef,
// an enum, a struct, a function, a symbol, or a stray token (skipped).
func (p *Parser) topLevel() error {
	t := p.lex.Peek()

	switch {
	case t.Kind == TokPragma:
		p.lex.Next()
		ld, hadLine, err := applyPragma(t.Text, t.Pos, &p.meta)
		if err != nil {
			return err
		}
		if hadLine {
			return p.switchTarget(ld, t.Pos)
		}
		return nil

	case t.Kind == TokIdent && t.Text == "typedef":
		return p.parseTypedef()

	case t.Kind == TokIdent && t.Text == "enum":
		return p.parseEnum()

	case t.Kind == TokIdent && t.Text == "struct":
		return p.parseStructOrDecl()

	case t.Kind == TokIdent:
		return p.parseFunctionOrSymbol()

	default:
		// stray token: consume and ignore.
		p.lex.Next()
		return nil
	}
}

// parseTypedef implements "typedef ... ;" with no braces (§4.1.3): if the
// current target is Object, append verbatim to Declaration. Meta must be
// empty.
func (p *Parser) parseTypedef() error {
	start := p.lex.Next() // 'typedef'
	if err := checkCompatible(DeclTypedef, &p.meta); err != nil {
		return &diag.Error{Pos: start.Pos, Message: err.Error()}
	}
	text, err := p.captureUntilSemicolon(start)
	if err != nil {
		return err
	}
	if p.isObjectTarget() {
		p.sections.Declaration.WriteString(text)
		p.sections.Declaration.WriteString("\n")
	}
	p.meta.Reset()
	return nil
}

// captureUntilSemicolon collects raw source text (best-effort
// reconstruction from tokens) up to and including a top-level ';',
// tracking brace/paren nesting so embedded braces do not terminate early.
func (p *Parser) captureUntilSemicolon(start Token) (string, error) {
	text := start.Text
	depth := 0
	for {
		t := p.lex.Peek()
		if t.Kind == TokEOF {
			return "", &diag.Error{Pos: t.Pos, Message: "unexpected end of input while scanning declaration"}
		}
		p.lex.Next()
		text += spaceBetween(text, t.Text) + t.Text
		if t.Kind == TokPunct {
			switch t.Text {
			case "{", "(", "[":
				depth++
			case "}", ")", "]":
				depth--
			case ";":
				if depth <= 0 {
					return text, nil
				}
			}
		}
	}
}

func spaceBetween(prev, next string) string {
	if prev == "" {
		return ""
	}
	switch next {
	case ";", ",", ")", "]":
		return ""
	}
	if prev == "(" || prev == "[" {
		return ""
	}
	return " "
}
