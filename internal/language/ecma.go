// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

// ecmaCapabilities covers JavaScript, TypeScript and TSX, which share the
// relevant node kinds.
func ecmaCapabilities() []*Capability {
	exts := map[string][]string{
		"javascript": {".js", ".mjs", ".cjs", ".jsx"},
		"typescript": {".ts", ".mts", ".cts"},
		"tsx":        {".tsx"},
	}
	var out []*Capability
	for _, lang := range []string{"javascript", "typescript", "tsx"} {
		out = append(out, &Capability{
			Language:   lang,
			Extensions: exts[lang],
			Rules:      ecmaRules(lang != "javascript"),
		})
	}
	return out
}

func ecmaRules(typed bool) *Rules {
	r := &Rules{
		Queries: []string{
			`(program (return_statement) @invalid.return.outside.function)`,
		},
		Placements: []Placement{
			{
				Rule:       "declaration.in.class.body",
				Containers: []string{"class_body"},
				Forbidden: []string{
					"function_declaration", "generator_function_declaration", "class_declaration",
					"lexical_declaration", "variable_declaration", "import_statement",
				},
			},
			{
				Rule:       "import.in.block",
				Containers: []string{"statement_block"},
				Forbidden:  []string{"import_statement", "export_statement"},
			},
		},
		Messages: map[string]Message{
			"return.outside.function": {
				Reason:     "'return' is only valid inside a function body",
				Suggestion: "Move the statement into a function",
			},
			"declaration.in.class.body": {
				Reason:     "Class bodies may only contain methods and fields",
				Suggestion: "Use a method definition such as `name() { ... }` or a field `name = value`",
			},
			"import.in.block": {
				Reason:     "Import and export declarations are only valid at module top level",
				Suggestion: "Move the declaration to the top of the module",
			},
		},
	}
	if typed {
		r.Placements = append(r.Placements, Placement{
			Rule:       "implementation.in.interface",
			Containers: []string{"interface_body", "object_type"},
			Forbidden:  []string{"function_declaration", "class_declaration", "lexical_declaration"},
		})
		r.Messages["implementation.in.interface"] = Message{
			Reason:     "Interfaces may only declare members, not implementations",
			Suggestion: "Declare the signature in the interface and implement it in a class",
		}
	}
	return r
}
