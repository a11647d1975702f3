package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UpstreamMetrics records calls to the remote inventory API.
type UpstreamMetrics struct {
	requests *Counter
	duration *Histogram
}

// NewUpstreamMetrics registers the upstream instruments on meter.
func NewUpstreamMetrics(meter metric.Meter) (*UpstreamMetrics, error) {
	requests, err := NewCounter(meter, "console.upstream.requests", "Calls to the inventory API", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "console.upstream.duration",
		Description: "Inventory API call duration",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &UpstreamMetrics{requests: requests, duration: duration}, nil
}

// ObserveUpstream records one call. status is 0 when no response arrived.
func (m *UpstreamMetrics) ObserveUpstream(ctx context.Context, endpoint, method string, status int, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrEndpoint.String(endpoint),
		AttrMethod.String(method),
		AttrStatusCode.String(strconv.Itoa(status)),
		AttrOutcome.String(outcome(status, err)),
	}
	m.requests.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs...)
}

func outcome(status int, err error) string {
	switch {
	case status == 0 && err != nil:
		return "unreachable"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "rejected"
	case err != nil:
		return "error"
	default:
		return "ok"
	}
}

// StoreMetrics records session store operations.
type StoreMetrics struct {
	ops      *Counter
	duration *Histogram
}

// NewStoreMetrics registers the session store instruments on meter.
func NewStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	ops, err := NewCounter(meter, "console.session.operations", "Session store operations", "{operation}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "console.session.duration",
		Description: "Session store operation duration",
		Unit:        "s",
		Boundaries:  StoreDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &StoreMetrics{ops: ops, duration: duration}, nil
}

// ObserveStore records one store call.
func (m *StoreMetrics) ObserveStore(ctx context.Context, backend, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := []attribute.KeyValue{
		AttrBackend.String(backend),
		AttrOperation.String(op),
		AttrOutcome.String(result),
	}
	m.ops.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs...)
}
