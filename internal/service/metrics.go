package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// Metrics holds the service-level Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Admissions        *prometheus.CounterVec
	AdmissionDuration *prometheus.HistogramVec
	ClientLifecycle   *prometheus.CounterVec
}

// NewMetrics creates the service collectors and registers them on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderdesk_trade_admissions_total",
				Help: "Trade admissions by outcome.",
			},
			[]string{"outcome"},
		),
		AdmissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orderdesk_trade_admission_duration_seconds",
				Help:    "Trade admission duration in seconds, lock waits included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		ClientLifecycle: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderdesk_client_lifecycle_total",
				Help: "Client lifecycle operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
	}

	registry.MustRegister(m.Admissions, m.AdmissionDuration, m.ClientLifecycle)
	return m
}

func (m *Metrics) observeAdmission(err error, seconds float64) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.Admissions.WithLabelValues(o).Inc()
	m.AdmissionDuration.WithLabelValues(o).Observe(seconds)
}

func (m *Metrics) observeLifecycle(operation string, err error) {
	if m == nil {
		return
	}
	m.ClientLifecycle.WithLabelValues(operation, outcome(err)).Inc()
}

// outcome reduces an error to a bounded label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest):
		return domain.ErrInvalidRequest.Error()
	case errors.Is(err, domain.ErrClientNotFound):
		return domain.ErrClientNotFound.Error()
	case errors.Is(err, domain.ErrInactiveParticipant):
		return domain.ErrInactiveParticipant.Error()
	case errors.Is(err, domain.ErrDuplicateTrade):
		return domain.ErrDuplicateTrade.Error()
	case errors.Is(err, domain.ErrProfitLimitExceeded):
		return domain.ErrProfitLimitExceeded.Error()
	case errors.Is(err, domain.ErrAlreadyInactive):
		return domain.ErrAlreadyInactive.Error()
	case errors.Is(err, domain.ErrDuplicateResource):
		return domain.ErrDuplicateResource.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
