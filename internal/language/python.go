// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

func pythonCapability() *Capability {
	return &Capability{
		Language:   "python",
		Extensions: []string{".py", ".pyi"},
		Rules: &Rules{
			Queries: []string{
				`(module (return_statement) @invalid.return.outside.function)`,
				`(class_definition body: (block (return_statement) @invalid.return.outside.function))`,
				`(module (expression_statement (yield) @invalid.yield.outside.function))`,
			},
			Messages: map[string]Message{
				"return.outside.function": {
					Reason:     "'return' is only valid inside a function body",
					Suggestion: "Move the statement into a function or method",
				},
				"yield.outside.function": {
					Reason:     "'yield' is only valid inside a function body",
					Suggestion: "Move the statement into a generator function",
				},
			},
		},
	}
}
