// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

import (
	"context"
	"fmt"

	"golang.org/x/tools/imports"
)

func goCapability() *Capability {
	return &Capability{
		Language:   "go",
		Extensions: []string{".go"},
		Format:     formatGo,
		Rules: &Rules{
			Queries: []string{
				`(source_file
					[(function_declaration) (method_declaration) (type_declaration) (var_declaration) (const_declaration)]
					(import_declaration) @invalid.import.after.declaration)`,
			},
			Placements: []Placement{
				{
					Rule:       "method.in.struct.fields",
					Containers: []string{"field_declaration_list"},
					Forbidden:  []string{"function_declaration", "method_declaration"},
				},
				{
					Rule:       "declaration.in.interface",
					Containers: []string{"interface_type"},
					Forbidden:  []string{"function_declaration", "method_declaration", "type_declaration"},
				},
				{
					Rule:       "declaration.in.block",
					Containers: []string{"block"},
					Forbidden:  []string{"function_declaration", "method_declaration", "import_declaration", "package_clause"},
				},
			},
			Messages: map[string]Message{
				"import.after.declaration": {
					Reason:     "Imports must precede all other declarations",
					Suggestion: "Move the import into the import block at the top of the file",
				},
				"method.in.struct.fields": {
					Reason:     "Functions and methods cannot be declared inside a struct type",
					Suggestion: "Declare the method at package level after the type definition",
				},
				"declaration.in.interface": {
					Reason:     "Interfaces may only list method signatures and embedded types",
					Suggestion: "Keep the signature in the interface and put the implementation on a concrete type",
				},
				"declaration.in.block": {
					Reason:     "Functions, methods and imports cannot be declared inside a block",
					Suggestion: "Declare it at package level, or use a function literal",
				},
			},
		},
	}
}

// formatGo runs goimports in format-only mode: gofmt plus import grouping,
// without adding or removing imports.
func formatGo(_ context.Context, src []byte) ([]byte, error) {
	out, err := imports.Process("", src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting go source: %w", err)
	}
	return out, nil
}
