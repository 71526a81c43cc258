// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petar-djukic/semedit/pkg/types"
)

var (
	tracer = otel.Tracer("semedit/engine")
	meter  = otel.Meter("semedit/engine")
)

var (
	operationsTotal    metric.Int64Counter
	validationLatency  metric.Float64Histogram
	revisionsCommitted metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		operationsTotal, err = meter.Int64Counter(
			"semedit_operations_total",
			metric.WithDescription("Engine operations by kind and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		validationLatency, err = meter.Float64Histogram(
			"semedit_validation_duration_seconds",
			metric.WithDescription("Duration of two-layer validation of one edit"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		revisionsCommitted, err = meter.Int64Counter(
			"semedit_commits_total",
			metric.WithDescription("Committed revisions by language"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// outcome labels err by its kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := types.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func recordOperation(ctx context.Context, op string, err error) {
	if initMetrics() != nil {
		return
	}
	operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome(err)),
	))
}

func recordValidation(ctx context.Context, language string, d time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	validationLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("outcome", outcome(err)),
	))
}

func recordCommit(ctx context.Context, language string) {
	if initMetrics() != nil {
		return
	}
	revisionsCommitted.Add(ctx, 1, metric.WithAttributes(attribute.String("language", language)))
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, counts the operation and ends the span.
func endSpan(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	recordOperation(ctx, op, err)
	span.End()
}
