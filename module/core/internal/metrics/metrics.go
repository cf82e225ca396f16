package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the delivery pipeline counters.
type Metrics struct {
	AlertsEnqueued   prometheus.Counter
	DeliveryAttempts prometheus.Counter
	AlertsDelivered  prometheus.Counter
	AlertsAbandoned  prometheus.Counter
}

// New registers the counters on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the counters on the given registerer; tests pass a
// fresh registry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AlertsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrack_alerts_enqueued_total",
			Help: "Total number of alert events accepted by the delivery queue",
		}),
		DeliveryAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrack_delivery_attempts_total",
			Help: "Total number of delivery attempts made by the queue worker",
		}),
		AlertsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrack_alerts_delivered_total",
			Help: "Total number of alert events delivered to all targets",
		}),
		AlertsAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrack_alerts_abandoned_total",
			Help: "Total number of alert events moved to the dead-letter list",
		}),
	}
}
