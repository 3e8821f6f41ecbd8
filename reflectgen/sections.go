package reflectgen

import "strings"

// Sections holds the six monotonically growing string buffers that are
// concatenated, in this order, to form the generated product file
// (spec §3.1, §4.1.9).
type Sections struct {
	Declaration       strings.Builder
	GenerationControl strings.Builder
	GeneratedFunctions strings.Builder
	GeneratedSymbols  strings.Builder
	Bootstrap         strings.Builder
	Registrar         strings.Builder
}

const preamble = `/* Generated by the reflection preprocessor. Do not edit. */
#include <kan/reflection/markup.h>
#include <kan/reflection/registry.h>
#include <kan/api_common/core_types.h>

#define ARCHETYPE_SELECTION_HELPER(value)                                                                             \
    _Generic ((value),                                                                                                \
        float: KAN_REFLECTION_ARCHETYPE_FLOATING, double: KAN_REFLECTION_ARCHETYPE_FLOATING,                          \
        default: KAN_REFLECTION_ARCHETYPE_SIGNED_INT)

#define ARCHETYPE_SELECTION_HELPER_GENERIC(value) ARCHETYPE_SELECTION_HELPER (value)

`

// Assemble concatenates the six sections, preceded by the fixed preamble,
// into the final product file contents.
func (s *Sections) Assemble() string {
	var out strings.Builder
	out.WriteString(preamble)
	out.WriteString(s.Declaration.String())
	out.WriteString(s.GenerationControl.String())
	out.WriteString(s.GeneratedFunctions.String())
	out.WriteString(s.GeneratedSymbols.String())
	out.WriteString(s.Bootstrap.String())
	out.WriteString(s.Registrar.String())
	return out.String()
}
