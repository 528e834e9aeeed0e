package apiclient

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "hyperbuds/apiclient"

type meters struct {
	requests  metric.Int64Counter
	duration  metric.Int64Histogram
	refreshes metric.Int64Counter
}

func newMeters() (*meters, error) {
	meter := otel.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion(otel.Version()),
	)

	requests, err := meter.Int64Counter(
		"hyperbuds.client.request_count",
		metric.WithDescription("Outgoing API request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request_count meter: %w", err)
	}

	duration, err := meter.Int64Histogram(
		"hyperbuds.client.duration",
		metric.WithDescription("Outgoing API request duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration meter: %w", err)
	}

	refreshes, err := meter.Int64Counter(
		"hyperbuds.client.refresh_count",
		metric.WithDescription("Token refreshes triggered by rejected requests"),
		metric.WithUnit("refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh_count meter: %w", err)
	}

	return &meters{
		requests:  requests,
		duration:  duration,
		refreshes: refreshes,
	}, nil
}

func (m *meters) recordRequest(ctx context.Context, method, outcome string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.Int("http.status_code", status),
		attribute.String("outcome", outcome),
	)

	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Milliseconds(), attrs)
}

func (m *meters) recordRefresh(ctx context.Context, succeeded bool) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("succeeded", succeeded)))
}
