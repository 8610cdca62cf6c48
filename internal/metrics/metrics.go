// Package metrics holds the Prometheus collectors exported by the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus collectors for the dispatch core.
type Metrics struct {
	Dispatches         *prometheus.CounterVec
	Autofills          *prometheus.CounterVec
	AutofillAssigned   prometheus.Counter
	AvailabilityChecks *prometheus.CounterVec
	BestEffortFailures *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg.  A nil registerer defaults to the
// global Prometheus registerer.  Collectors that are already registered
// are reused so New can be called more than once per process.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Pilot dispatch attempts by outcome",
		}, []string{"outcome"}),
		Autofills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_autofill_total",
			Help:      "Shuttle auto-fill attempts by outcome",
		}, []string{"outcome"}),
		AutofillAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_assignments_placed_total",
			Help:      "Assignments placed on shuttles by auto-fill",
		}),
		AvailabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Availability checks by answer",
		}, []string{"available"}),
		BestEffortFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Non-critical side effects that failed after the primary effect committed",
		}, []string{"effect"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	var err error
	if m.Dispatches, err = register(reg, m.Dispatches); err != nil {
		return nil, err
	}
	if m.Autofills, err = register(reg, m.Autofills); err != nil {
		return nil, err
	}
	if m.AutofillAssigned, err = register(reg, m.AutofillAssigned); err != nil {
		return nil, err
	}
	if m.AvailabilityChecks, err = register(reg, m.AvailabilityChecks); err != nil {
		return nil, err
	}
	if m.BestEffortFailures, err = register(reg, m.BestEffortFailures); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = register(reg, m.RequestDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Noop returns collectors registered on a throwaway registry.
func Noop() *Metrics {
	m, _ := New("flightdesk", prometheus.NewRegistry())
	return m
}
