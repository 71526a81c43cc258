// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

var rustItems = []string{
	"function_item", "impl_item", "trait_item", "struct_item", "enum_item",
	"mod_item", "use_declaration", "const_item", "static_item", "type_item",
}

func rustCapability() *Capability {
	return &Capability{
		Language:   "rust",
		Extensions: []string{".rs"},
		Rules: &Rules{
			Placements: []Placement{
				{
					Rule:       "function.in.struct.fields",
					Containers: []string{"field_declaration_list"},
					Forbidden:  []string{"function_item"},
				},
				{
					Rule:       "item.in.struct.fields",
					Containers: []string{"field_declaration_list", "ordered_field_declaration_list"},
					Forbidden:  rustItems,
				},
				{
					Rule:       "function.in.enum.variants",
					Containers: []string{"enum_variant_list"},
					Forbidden:  rustItems,
				},
				{
					Rule:       "impl.nested",
					Containers: []string{"impl_item>declaration_list", "trait_item>declaration_list"},
					Forbidden:  []string{"impl_item", "trait_item", "mod_item", "struct_item", "enum_item"},
				},
			},
			Messages: map[string]Message{
				"function.in.struct.fields": {
					Reason:     "Functions cannot be defined inside struct field lists",
					Suggestion: "Place the function in an impl block after the type definition",
				},
				"item.in.struct.fields": {
					Reason:     "Struct field lists may only contain field declarations",
					Suggestion: "Move the item outside the struct definition",
				},
				"function.in.enum.variants": {
					Reason:     "Enum variant lists may only contain variants",
					Suggestion: "Place the item in an impl block after the enum definition",
				},
				"impl.nested": {
					Reason:     "Impl and trait bodies may only contain associated items",
					Suggestion: "Move the item to module level",
				},
			},
		},
	}
}
