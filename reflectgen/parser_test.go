package reflectgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runFixture(t *testing.T, targetPaths []string, source string) string {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "unit.c")
	if err := os.WriteFile(inputPath, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	targets := NewTargetSet()
	for _, tp := range targetPaths {
		targets.Add(tp)
	}

	p := NewParser(targets)
	out, err := p.Run([]string{inputPath})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func withLineDirective(path, body string) string {
	return "#line 1 \"" + path + "\"\n" + body
}

// Boundary scenario 1: enum without values.
func TestEnumWithoutValues(t *testing.T) {
	target := "/src/thing.c"
	src := withLineDirective(target, "enum E { };\n")
	out := runFixture(t, []string{target}, src)

	if !strings.Contains(out, "enum E {") {
		t.Fatalf("expected enum declaration copied verbatim, got:\n%s", out)
	}
	if strings.Contains(out, "reflection_enum") {
		t.Fatalf("zero-value enum must not produce reflection symbols, got:\n%s", out)
	}
	if strings.Contains(out, "kan_reflection_registry_add_enum") {
		t.Fatalf("zero-value enum must not be registered, got:\n%s", out)
	}
}

// Boundary scenario 3: reflected function.
func TestReflectedFunction(t *testing.T) {
	target := "/src/thing.c"
	src := withLineDirective(target, "#pragma kan_export\nint f (int x, struct P *p);\n")
	out := runFixture(t, []string{target}, src)

	if !strings.Contains(out, "struct f_call_arguments_t {") {
		t.Fatalf("missing call arguments struct, got:\n%s", out)
	}
	if !strings.Contains(out, "int _0;") || !strings.Contains(out, "struct P *_1;") {
		t.Fatalf("call arguments struct missing expected fields, got:\n%s", out)
	}
	if !strings.Contains(out, "call_functor_f") {
		t.Fatalf("missing call_functor_f wrapper, got:\n%s", out)
	}
	if !strings.Contains(out, "return_address") {
		t.Fatalf("wrapper should write through return_address, got:\n%s", out)
	}
	if !strings.Contains(out, "reflection_f_data") {
		t.Fatalf("missing bootstrap entry reflection_f_data, got:\n%s", out)
	}
	if !strings.Contains(out, ".arguments_count = 2") {
		t.Fatalf("expected arguments_count = 2, got:\n%s", out)
	}
}

// Boundary scenario 2: struct with visibility condition.
func TestStructVisibilityCondition(t *testing.T) {
	target := "/src/thing.c"
	src := withLineDirective(target, ""+
		"struct S {\n"+
		"    uint32_t tag;\n"+
		"    #pragma kan_reflection_visibility_condition_field tag\n"+
		"    #pragma kan_reflection_visibility_condition_value 0\n"+
		"    union {\n"+
		"        uint32_t a;\n"+
		"        #pragma kan_reflection_visibility_condition_field tag\n"+
		"        #pragma kan_reflection_visibility_condition_value 1\n"+
		"        float b;\n"+
		"    };\n"+
		"};\n")
	out := runFixture(t, []string{target}, src)

	if strings.Count(out, ".visibility_condition_values_count = 1") != 2 {
		t.Fatalf("expected two fields each with visibility_condition_values_count == 1, got:\n%s", out)
	}
}

func TestSymbolExportRequiresStruct(t *testing.T) {
	target := "/src/thing.c"
	src := withLineDirective(target, "#pragma kan_export\nint not_a_struct;\n")
	_, err := (func() (string, error) {
		dir := t.TempDir()
		inputPath := filepath.Join(dir, "unit.c")
		os.WriteFile(inputPath, []byte(src), 0o644)
		targets := NewTargetSet()
		targets.Add(target)
		return NewParser(targets).Run([]string{inputPath})
	})()
	if err == nil || !strings.Contains(err.Error(), "only struct symbols can be exported") {
		t.Fatalf("expected 'only struct symbols can be exported' error, got: %v", err)
	}
}

func TestOutsideTargetIgnored(t *testing.T) {
	src := withLineDirective("/not-a-target.c", "struct Ignored { int x; };\n")
	out := runFixture(t, []string{"/src/thing.c"}, src)
	if strings.Contains(out, "Ignored") {
		t.Fatalf("declarations outside T must be ignored entirely, got:\n%s", out)
	}
}
