package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "votuna",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of outbound provider API calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "method", "status"},
	)

	SuggestionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "votuna",
			Name:      "suggestion_resolutions_total",
			Help:      "Suggestions moved out of pending, by status and reason.",
		},
		[]string{"status", "reason"},
	)

	ReconciledSuggestions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "votuna",
			Name:      "reconciled_suggestions_total",
			Help:      "Pending suggestions found already live on the provider and closed by the sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(ProviderRequestDuration, SuggestionResolutions, ReconciledSuggestions)
}

// ObserveProviderRequest records one provider round trip. A zero status means
// the request never got a response.
func ObserveProviderRequest(provider, method string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ProviderRequestDuration.WithLabelValues(provider, method, label).Observe(time.Since(started).Seconds())
}

func RecordResolution(status, reason string) {
	SuggestionResolutions.WithLabelValues(status, reason).Inc()
}
