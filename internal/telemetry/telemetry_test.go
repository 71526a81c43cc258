// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Metrics(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, Config{Metrics: true})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	counter, err := otel.Meter("semedit/test").Int64Counter("semedit_test_events_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	h := p.MetricsHandler()
	require.NotNil(t, h)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "semedit_test_events_total")
}

func TestInit_StdoutTraces(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	p, err := Init(ctx, Config{TraceExporter: ExporterStdout, TraceWriter: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("semedit/test").Start(ctx, "Engine.Stage")
	span.End()
	require.NoError(t, p.Shutdown(ctx))

	assert.Contains(t, buf.String(), "Engine.Stage")
	assert.Nil(t, p.MetricsHandler())
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "zipkin"})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestInit_Nothing(t *testing.T) {
	p, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, p.MetricsHandler())
	assert.NoError(t, p.Shutdown(context.Background()))
}
