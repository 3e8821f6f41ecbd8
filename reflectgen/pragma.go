package reflectgen

import (
	"strconv"
	"strings"

	"github.com/KonstantinTomashevich/kan-codegen/internal/diag"
)

// pragmaWords splits a captured pragma body into whitespace-separated
// words, keeping quoted strings intact.
func pragmaWords(body string) []string {
	body = strings.TrimPrefix(body, "#")
	body = strings.TrimPrefix(strings.TrimSpace(body), "pragma")
	var words []string
	i := 0
	n := len(body)
	for i < n {
		for i < n && (body[i] == ' ' || body[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		if body[i] == '"' {
			j := i + 1
			for j < n && body[j] != '"' {
				if body[j] == '\\' {
					j++
				}
				j++
			}
			if j < n {
				j++
			}
			words = append(words, body[i:j])
			i = j
			continue
		}
		j := i
		for j < n && body[j] != ' ' && body[j] != '\t' {
			j++
		}
		words = append(words, body[i:j])
		i = j
	}
	return words
}

// lineDirective is the parsed form of a `line N "path" [flags]` pragma.
type lineDirective struct {
	number int
	path   string
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// tryLineDirective recognizes form (a) from spec §4.1.3: either
// `line N "path" ...` or the plain preprocessor form `N "path" ...`.
func tryLineDirective(words []string) (lineDirective, bool) {
	if len(words) == 0 {
		return lineDirective{}, false
	}
	idx := 0
	if words[0] == "line" {
		idx = 1
	}
	if idx >= len(words) || !isAllDigits(words[idx]) {
		return lineDirective{}, false
	}
	num, _ := strconv.Atoi(words[idx])
	idx++
	if idx >= len(words) || len(words[idx]) < 2 || words[idx][0] != '"' {
		return lineDirective{}, false
	}
	path := unquoteC(words[idx])
	return lineDirective{number: num, path: path}, true
}

func unquoteC(s string) string {
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// applyPragma interprets a captured pragma body, mutating m or returning a
// line directive. It returns (lineDir, hadLineDir, error).
func applyPragma(body string, pos diag.Position, m *MetaStore) (lineDirective, bool, error) {
	words := pragmaWords(body)
	if ld, ok := tryLineDirective(words); ok {
		return ld, true, nil
	}
	if len(words) == 0 {
		return lineDirective{}, false, nil
	}

	switch words[0] {
	case "warning":
		// MSVC `warning (push, N)` / `warning (pop)`: silently consumed.
		return lineDirective{}, false, nil
	case "once":
		return lineDirective{}, false, nil
	}

	if !strings.HasPrefix(words[0], "kan_") {
		// unrelated pragma form: silently consumed (spec §4.1.3 case c).
		return lineDirective{}, false, nil
	}

	switch words[0] {
	case "kan_export":
		m.Export = true
	case "kan_reflection_flags":
		m.Flags = true
	case "kan_reflection_ignore":
		m.Ignore = true
	case "kan_reflection_ignore_struct_field":
		m.IgnoreField = true
	case "kan_reflection_external_pointer":
		m.ExternalPointer = true
	case "kan_reflection_explicit_init_functor":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_explicit_init_functor requires an identifier argument")
		}
		if m.HasExplicitInit {
			return lineDirective{}, false, diag.Errorf(pos, "duplicate kan_reflection_explicit_init_functor")
		}
		m.ExplicitInit, m.HasExplicitInit = words[1], true
	case "kan_reflection_explicit_shutdown_functor":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_explicit_shutdown_functor requires an identifier argument")
		}
		if m.HasExplicitShutdown {
			return lineDirective{}, false, diag.Errorf(pos, "duplicate kan_reflection_explicit_shutdown_functor")
		}
		m.ExplicitShutdown, m.HasExplicitShutdown = words[1], true
	case "kan_reflection_dynamic_array_type":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_dynamic_array_type requires a type reference")
		}
		if m.HasDynamicArrayType {
			return lineDirective{}, false, diag.Errorf(pos, "duplicate kan_reflection_dynamic_array_type")
		}
		m.DynamicArrayType = parseTypeRefText(strings.Join(words[1:], " "))
		m.HasDynamicArrayType = true
	case "kan_reflection_size_field":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_size_field requires an identifier argument")
		}
		if m.HasSizeField {
			return lineDirective{}, false, diag.Errorf(pos, "duplicate kan_reflection_size_field")
		}
		m.SizeField, m.HasSizeField = words[1], true
	case "kan_reflection_visibility_condition_field":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_visibility_condition_field requires an identifier argument")
		}
		if m.HasVisibilityConditionField {
			return lineDirective{}, false, diag.Errorf(pos, "duplicate kan_reflection_visibility_condition_field")
		}
		m.VisibilityConditionField, m.HasVisibilityConditionField = words[1], true
	case "kan_reflection_visibility_condition_value":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_visibility_condition_value requires a token argument")
		}
		m.VisibilityConditionValues = append(m.VisibilityConditionValues, VisibilityConditionValue{Token: words[1]})
	case "kan_reflection_enum_meta":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_enum_meta requires an identifier argument")
		}
		m.TopLevel = append(m.TopLevel, TopLevelMeta{Kind: TopLevelEnum, MetaIdent: words[1]})
	case "kan_reflection_struct_meta":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_struct_meta requires an identifier argument")
		}
		m.TopLevel = append(m.TopLevel, TopLevelMeta{Kind: TopLevelStruct, MetaIdent: words[1]})
	case "kan_reflection_function_meta":
		if len(words) < 2 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_function_meta requires an identifier argument")
		}
		m.TopLevel = append(m.TopLevel, TopLevelMeta{Kind: TopLevelFunction, MetaIdent: words[1]})
	case "kan_reflection_enum_value_meta":
		if len(words) < 3 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_enum_value_meta requires two identifier arguments")
		}
		m.Secondary = append(m.Secondary, SecondaryLevelMeta{Kind: SecondaryEnumValue, TopName: words[1], SecondaryName: words[2]})
	case "kan_reflection_struct_field_meta":
		if len(words) < 3 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_struct_field_meta requires two identifier arguments")
		}
		m.Secondary = append(m.Secondary, SecondaryLevelMeta{Kind: SecondaryStructField, TopName: words[1], SecondaryName: words[2]})
	case "kan_reflection_function_argument_meta":
		if len(words) < 3 {
			return lineDirective{}, false, diag.Errorf(pos, "kan_reflection_function_argument_meta requires two identifier arguments")
		}
		m.Secondary = append(m.Secondary, SecondaryLevelMeta{Kind: SecondaryFunctionArgument, TopName: words[1], SecondaryName: words[2]})
	default:
		return lineDirective{}, false, diag.Errorf(pos, "unknown pragma marker %q", words[0])
	}

	return lineDirective{}, false, nil
}

// parseTypeRefText parses a simplified C type reference out of raw text,
// enough to drive archetype selection for dynamic-array element types.
func parseTypeRefText(text string) TypeInfo {
	text = strings.TrimSpace(text)
	info := TypeInfo{}
	for strings.HasPrefix(text, "const ") {
		info.IsConst = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "const "))
	}
	for strings.HasSuffix(text, "*") {
		info.PointerLevel++
		text = strings.TrimSpace(strings.TrimSuffix(text, "*"))
	}
	switch {
	case strings.HasPrefix(text, "struct "):
		info.Group = GroupStruct
		text = strings.TrimSpace(strings.TrimPrefix(text, "struct "))
	case strings.HasPrefix(text, "enum "):
		info.Group = GroupEnum
		text = strings.TrimSpace(strings.TrimPrefix(text, "enum "))
	default:
		info.Group = GroupValue
	}
	info.Name = text
	return info
}
