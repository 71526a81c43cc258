// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the layout of a user rules file:
//
//	languages:
//	  rust:
//	    placements:
//	      - rule: macro.in.fields
//	        containers: [field_declaration_list]
//	        forbidden: [macro_invocation]
//	        reason: Macros cannot appear in field lists
//	        suggestion: Move the macro call into a function
//	    queries:
//	      - (function_item name: (identifier) @invalid.reserved.name (#eq? @invalid.reserved.name "drop"))
type ruleFile struct {
	Languages map[string]*Rules `yaml:"languages"`
}

// LoadRules reads a YAML rules file and merges its rules into r.
func (r *Registry) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rules %s: %w", path, err)
	}
	return r.ParseRules(data)
}

// ParseRules merges rules from YAML data into r.
func (r *Registry) ParseRules(data []byte) error {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing rules: %w", err)
	}
	for lang, rules := range f.Languages {
		if rules == nil {
			continue
		}
		for i, p := range rules.Placements {
			if p.Rule == "" || len(p.Containers) == 0 || len(p.Forbidden) == 0 {
				return fmt.Errorf("rules for %s: placement %d needs rule, containers and forbidden", lang, i)
			}
		}
		r.AddRules(lang, rules)
	}
	return nil
}
