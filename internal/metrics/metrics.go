package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
	SyncFailures     metric.Int64Counter
	AuditFailures    metric.Int64Counter
	SoftDeletes      metric.Int64Counter
	Restores         metric.Int64Counter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"cms_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"cms_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheHits, err = meter.Int64Counter(
		"cms_cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheMisses, err = meter.Int64Counter(
		"cms_cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.SyncFailures, err = meter.Int64Counter(
		"cms_relationship_sync_failures_total",
		metric.WithDescription("Relationship sync operations that failed for a single kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.AuditFailures, err = meter.Int64Counter(
		"cms_audit_write_failures_total",
		metric.WithDescription("Audit log writes that failed and were absorbed"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.SoftDeletes, err = meter.Int64Counter(
		"cms_soft_deletes_total",
		metric.WithDescription("Successful soft-delete transitions"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Restores, err = meter.Int64Counter(
		"cms_restores_total",
		metric.WithDescription("Successful restore transitions"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordSyncFailure(ctx context.Context, kind string) {
	m.SyncFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordAuditFailure(ctx context.Context, contentType string) {
	m.AuditFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("content_type", contentType)))
}

func (m *Metrics) RecordSoftDelete(ctx context.Context, contentType string) {
	m.SoftDeletes.Add(ctx, 1, metric.WithAttributes(attribute.String("content_type", contentType)))
}

func (m *Metrics) RecordRestore(ctx context.Context, contentType string) {
	m.Restores.Add(ctx, 1, metric.WithAttributes(attribute.String("content_type", contentType)))
}
