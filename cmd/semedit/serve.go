// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/semedit/internal/telemetry"
	"github.com/petar-djukic/semedit/pkg/semedit"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the edit tools over MCP on stdio",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	metricsAddr := viper.GetString("metrics-addr")
	providers, err := telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: version,
		TraceExporter:  viper.GetString("trace-exporter"),
		Metrics:        metricsAddr != "",
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		providers.Shutdown(sctx)
	}()

	if h := providers.MetricsHandler(); h != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", h)
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics listening", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	ed, err := semedit.New(editorConfig(logger))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer ed.Close()

	return ed.ServeMCP(ctx, &mcp.StdioTransport{}, version)
}
