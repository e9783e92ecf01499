// Package metrics exposes the orchestrator's provider health and
// lifecycle counts as Prometheus gauges/counters, scraped over HTTP the
// same way cartographus exposes its own via promhttp.Handler().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderHealthy is 1 if a provider's last health check succeeded, 0
	// otherwise. Labeled by provider name so a single sweep updates every
	// provider's gauge independently.
	ProviderHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lwsgo_provider_healthy",
			Help: "1 if the provider's last health check succeeded, 0 otherwise",
		},
		[]string{"provider"},
	)

	// HealthSweepsTotal counts completed health sweeps.
	HealthSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lwsgo_health_sweeps_total",
			Help: "Total number of background health sweeps run",
		},
	)

	// ProvidersRegistered tracks how many providers the orchestrator is
	// currently managing.
	ProvidersRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lwsgo_providers_registered",
			Help: "Current number of providers registered with the orchestrator",
		},
	)
)

// RecordHealth updates the provider health gauges from a health report.
// providers maps provider name to its Healthy() result ("ok" or an error
// string), matching orchestrator.HealthReport.Providers without this
// package needing to import internal/orchestrator.
func RecordHealth(providers map[string]string) {
	HealthSweepsTotal.Inc()
	ProvidersRegistered.Set(float64(len(providers)))
	for name, detail := range providers {
		value := 0.0
		if detail == "ok" {
			value = 1.0
		}
		ProviderHealthy.WithLabelValues(name).Set(value)
	}
}
