package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	AIRequestsTotal           metric.Int64Counter
	ProviderLatencySeconds    metric.Float64Histogram
	TransportRetriesTotal     metric.Int64Counter
	SanitizerSuspiciousTotal  metric.Int64Counter
	DiscoveryCacheHitsTotal   metric.Int64Counter
	DiscoveryCacheMissesTotal metric.Int64Counter
	DbQueryDurationSeconds    metric.Float64Histogram
	DbQueryErrorsTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the globally configured
// MeterProvider. Before a provider is installed otel hands out a delegating
// no-op meter, so calling this early (or from tests) is safe.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TripAssistant")
		m := &AppMetrics{}

		m.AIRequestsTotal = mustCounter(meter, "ai_requests_total",
			"Total number of AI handler invocations by handler and outcome", "{request}")
		m.ProviderLatencySeconds = mustHistogram(meter, "ai_provider_latency_seconds",
			"Latency of chat-completion provider calls in seconds")
		m.TransportRetriesTotal = mustCounter(meter, "transport_retries_total",
			"Total number of retried outbound provider requests", "{retry}")
		m.SanitizerSuspiciousTotal = mustCounter(meter, "sanitizer_suspicious_total",
			"Total number of inputs flagged as possible prompt injection", "{input}")
		m.DiscoveryCacheHitsTotal = mustCounter(meter, "discovery_cache_hits_total",
			"Total number of attraction discovery cache hits", "{hit}")
		m.DiscoveryCacheMissesTotal = mustCounter(meter, "discovery_cache_misses_total",
			"Total number of attraction discovery cache misses", "{miss}")
		m.DbQueryDurationSeconds = mustHistogram(meter, "db_query_duration_seconds",
			"Duration of database queries in seconds")
		m.DbQueryErrorsTotal = mustCounter(meter, "db_query_errors_total",
			"Total number of database query errors", "{error}")

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

func mustCounter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func mustHistogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}

// Get returns the process-wide instruments, initializing them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
