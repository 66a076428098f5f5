// Package metrics exposes prometheus counters for the rating pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"go.uber.org/fx"
)

// Module provides the pipeline metrics.
var Module = fx.Provide(New)

type Metrics struct {
	IngestedRecords *prometheus.CounterVec
	RatedEvents     prometheus.Counter
	RatingFailures  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		IngestedRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratecell",
			Name:      "usage_records_ingested_total",
			Help:      "Raw usage records persisted, by call type.",
		}, []string{"call_type"}),
		RatedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ratecell",
			Name:      "rated_events_total",
			Help:      "Rated events persisted.",
		}),
		RatingFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratecell",
			Name:      "rating_failures_total",
			Help:      "Rating attempts that returned an error, by reason.",
		}, []string{"reason"}),
	}
}

// CallTypeLabel clamps arbitrary input to a bounded label set.
func CallTypeLabel(callType string) string {
	switch callType {
	case usagedomain.CallTypeVoice, usagedomain.CallTypeSMS, usagedomain.CallTypeData:
		return callType
	default:
		return "unknown"
	}
}
