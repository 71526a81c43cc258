// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package syntax parses documents with tree-sitter and flattens the result
// into an arena of nodes that the rest of the engine can index safely.
package syntax

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// PlainText is the language tag of documents without a grammar.
const PlainText = "plain"

// Grammar binds a language tag to its tree-sitter language and the file
// extensions it claims.
type Grammar struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
}

// NewGrammar wraps a tree-sitter language for registration.
func NewGrammar(name string, lang *sitter.Language, exts ...string) *Grammar {
	return &Grammar{Name: name, Extensions: exts, lang: lang}
}

// builtinGrammars are registered by NewProvider.
func builtinGrammars() []*Grammar {
	return []*Grammar{
		NewGrammar("go", golang.GetLanguage(), ".go"),
		NewGrammar("rust", rust.GetLanguage(), ".rs"),
		NewGrammar("python", python.GetLanguage(), ".py", ".pyi"),
		NewGrammar("javascript", javascript.GetLanguage(), ".js", ".mjs", ".cjs", ".jsx"),
		NewGrammar("typescript", typescript.GetLanguage(), ".ts", ".mts", ".cts"),
		NewGrammar("tsx", tsx.GetLanguage(), ".tsx"),
		NewGrammar("yaml", yaml.GetLanguage(), ".yaml", ".yml"),
		NewGrammar("toml", toml.GetLanguage(), ".toml"),
		NewGrammar("c", c.GetLanguage(), ".c", ".h"),
		NewGrammar("cpp", cpp.GetLanguage(), ".cc", ".cpp", ".cxx", ".hpp", ".hh"),
		NewGrammar("bash", bash.GetLanguage(), ".sh", ".bash"),
	}
}

// Provider owns the grammar registry and produces parse trees. It is safe
// for concurrent use; each parse gets its own tree-sitter parser.
type Provider struct {
	mu       sync.RWMutex
	grammars map[string]*Grammar
	byExt    map[string]string
}

// NewProvider returns a provider with every built-in grammar registered.
func NewProvider() *Provider {
	p := &Provider{
		grammars: make(map[string]*Grammar),
		byExt:    make(map[string]string),
	}
	for _, g := range builtinGrammars() {
		p.Register(g)
	}
	return p
}

// Register adds or replaces a grammar and claims its extensions.
func (p *Provider) Register(g *Grammar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grammars[g.Name] = g
	for _, ext := range g.Extensions {
		p.byExt[strings.ToLower(ext)] = g.Name
	}
}

// Grammar returns the grammar registered under name.
func (p *Provider) Grammar(name string) (*Grammar, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.grammars[name]
	return g, ok
}

// Languages lists the registered language tags in sorted order.
func (p *Provider) Languages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.grammars))
	for name := range p.grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectLanguage maps a path to a language tag by extension. Unknown
// extensions map to PlainText.
func (p *Provider) DetectLanguage(path string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name, ok := p.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return name
	}
	return PlainText
}
