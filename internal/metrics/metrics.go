// Package metrics provides Prometheus metrics for SPFWeaver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "spfweaver"

var (
	// BuildInfo exposes version information as a gauge set to 1.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information (always 1).",
	}, []string{"version", "go_version"})

	// DNSQueriesTotal counts upstream DNS queries by record type.
	DNSQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "dns_queries_total",
		Help:      "Total DNS queries issued during flattening, by record type.",
	}, []string{"type"})

	// FlattenRunsTotal counts flattening runs by outcome.
	FlattenRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "flatten_runs_total",
		Help:      "Total flattening runs, by status (success or error).",
	}, []string{"status"})

	// FlattenDuration tracks how long one full flattening run takes.
	FlattenDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "flatten_duration_seconds",
		Help:      "Duration of flattening runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// FlattenWarningsTotal counts mechanisms dropped with a warning.
	FlattenWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "flatten_warnings_total",
		Help:      "Total mechanisms skipped with a warning during flattening.",
	})

	// FlattenLookupsUsed reports the DNS lookup count of the last run.
	FlattenLookupsUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "flatten_lookups_used",
		Help:      "DNS lookups consumed by the most recent flattening run.",
	})

	// RecordsPublishedTotal counts TXT records written, by provider.
	RecordsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_published_total",
		Help:      "Total TXT records published, by provider.",
	}, []string{"provider"})

	// PublishErrorsTotal counts failed publish attempts, by provider.
	PublishErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "publish_errors_total",
		Help:      "Total failed publish attempts, by provider.",
	}, []string{"provider"})

	// ProviderHealthy reports per-provider reachability (1 healthy, 0 not).
	ProviderHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "provider_healthy",
		Help:      "Whether the provider's last ping succeeded (1 = healthy).",
	}, []string{"provider"})
)

// SetBuildInfo records the running binary's version labels.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
