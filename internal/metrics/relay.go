package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RelayMetrics tracks streaming traffic, which the per-operation BusinessMetrics
// cannot express: bytes relayed and relays currently open.
type RelayMetrics interface {
	// StreamStarted increments the in-flight gauge.
	StreamStarted(ctx context.Context)
	// StreamFinished decrements the in-flight gauge and counts the terminal state.
	StreamFinished(ctx context.Context, state string, statusCode int)
	// BytesRelayed adds n to the relayed bytes counter.
	BytesRelayed(ctx context.Context, n int64)
}

type relayMetrics struct {
	activeStreams metric.Int64UpDownCounter
	streams       metric.Int64Counter
	bytes         metric.Int64Counter
}

// NewRelayMetrics creates the OpenTelemetry backed RelayMetrics.
func NewRelayMetrics(meterProvider metric.MeterProvider, namespace string) (RelayMetrics, error) {
	meter := meterProvider.Meter(namespace)

	activeStreams, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_relay_active_streams", namespace),
		metric.WithDescription("Number of relays currently streaming or connecting"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active streams gauge: %w", err)
	}

	streams, err := meter.Int64Counter(
		fmt.Sprintf("%s_relay_streams_total", namespace),
		metric.WithDescription("Total number of finished relays by terminal state"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streams counter: %w", err)
	}

	bytes, err := meter.Int64Counter(
		fmt.Sprintf("%s_relay_bytes_total", namespace),
		metric.WithDescription("Total number of body bytes written to clients"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytes counter: %w", err)
	}

	return &relayMetrics{
		activeStreams: activeStreams,
		streams:       streams,
		bytes:         bytes,
	}, nil
}

func (r *relayMetrics) StreamStarted(ctx context.Context) {
	r.activeStreams.Add(ctx, 1)
}

func (r *relayMetrics) StreamFinished(ctx context.Context, state string, statusCode int) {
	r.activeStreams.Add(ctx, -1)
	r.streams.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.Int("status_code", statusCode),
	))
}

func (r *relayMetrics) BytesRelayed(ctx context.Context, n int64) {
	if n <= 0 {
		return
	}
	r.bytes.Add(ctx, n)
}

// NoOpRelayMetrics is used when METRICS_ENABLED is false.
type NoOpRelayMetrics struct{}

// NewNoOpRelayMetrics creates a no-op RelayMetrics implementation.
func NewNoOpRelayMetrics() RelayMetrics {
	return &NoOpRelayMetrics{}
}

func (n *NoOpRelayMetrics) StreamStarted(ctx context.Context) {}

func (n *NoOpRelayMetrics) StreamFinished(ctx context.Context, state string, statusCode int) {}

func (n *NoOpRelayMetrics) BytesRelayed(ctx context.Context, bytes int64) {}
