// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/semedit/internal/feedback"
	"github.com/petar-djukic/semedit/internal/language"
	"github.com/petar-djukic/semedit/internal/outline"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse files and list syntax errors",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().String("language", "", "Override language detection")
	return cmd
}

// parseFile reads and parses path, resolved against the workdir.
func parseFile(cmd *cobra.Command, provider *syntax.Provider, path string) (string, *syntax.Tree, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(viper.GetString("workdir"), path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return path, nil, types.IoError(path, err)
	}
	lang, _ := cmd.Flags().GetString("language")
	if lang == "" {
		lang = provider.DetectLanguage(path)
	}
	tree, err := provider.Parse(cmd.Context(), lang, src)
	if err != nil {
		return path, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return path, tree, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	provider := syntax.NewProvider()
	out := cmd.OutOrStdout()

	total := 0
	for _, arg := range args {
		path, tree, err := parseFile(cmd, provider, arg)
		if err != nil {
			return err
		}
		diags := feedback.Diagnostics(path, tree)
		tree.Close()
		for _, d := range diags {
			fmt.Fprintln(out, d)
		}
		total += len(diags)
	}
	if total > 0 {
		cmd.SilenceErrors = true
		return fmt.Errorf("%d syntax errors", total)
	}
	return nil
}

func newOutlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outline FILE",
		Short: "List the definitions a selector can address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, tree, err := parseFile(cmd, syntax.NewProvider(), args[0])
			if err != nil {
				return err
			}
			defer tree.Close()
			syms, err := outline.Extract(tree)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), outline.Render(path, syms, 0))
			return nil
		},
	}
	cmd.Flags().String("language", "", "Override language detection")
	return cmd
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps := language.Builtin()
			if rules := viper.GetString("rules"); rules != "" {
				if err := caps.LoadRules(rules); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, name := range syntax.NewProvider().Languages() {
				c := caps.Lookup(name)
				fmt.Fprintf(out, "%-12s rules=%-5t format=%t\n", name, c.ChecksContext(), c.Format != nil)
			}
			return nil
		},
	}
}
