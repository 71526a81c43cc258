// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command semedit serves the semantic edit engine over MCP and applies
// single edits from the command line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/semedit/pkg/semedit"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "semedit",
		Short: "Selector-addressed, grammar-validated source edits",
		Long: "semedit edits source files through tree-sitter selectors. Every edit is " +
			"validated against the grammar and the language's placement rules before it is written.",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("workdir", ".", "Directory relative paths resolve against")
	flags.Int("cache-size", 64, "Parsed documents kept in memory")
	flags.String("eviction", "refuse", "Cache eviction policy when every document is pinned: refuse or abort")
	flags.Bool("format", false, "Run the language formatter on validated edits")
	flags.Bool("watch", false, "Reload open documents when they change on disk")
	flags.String("rules", "", "YAML file with extra placement rules")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (serve only)")
	flags.String("trace-exporter", "none", "Trace exporter: none or stdout (serve only)")

	for _, name := range []string{"workdir", "cache-size", "eviction", "format", "watch", "rules", "log-level", "metrics-addr", "trace-exporter"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	// SEMEDIT_WORKDIR, SEMEDIT_CACHE_SIZE, ...
	viper.SetEnvPrefix("SEMEDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(".semedit")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.ReadInConfig() // Optional.

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newOutlineCmd())
	rootCmd.AddCommand(newLanguagesCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// newLogger writes text logs to w; stdout belongs to the MCP transport.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// editorConfig reads the editor settings from flags, env and config file.
func editorConfig(logger *slog.Logger) semedit.Config {
	return semedit.Config{
		WorkDir:   viper.GetString("workdir"),
		CacheSize: viper.GetInt("cache-size"),
		Eviction:  viper.GetString("eviction"),
		Format:    viper.GetBool("format"),
		Watch:     viper.GetBool("watch"),
		RulesFile: viper.GetString("rules"),
		Logger:    logger,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print semedit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "semedit %s\n", version)
		},
	}
}
