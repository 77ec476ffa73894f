package vds

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "vds"

type metrics struct {
	opens              *prometheus.CounterVec
	elements           *prometheus.CounterVec
	extentChanges      prometheus.Counter
	mappingsPerRequest prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "source_opens_total",
			Help:      "Source dataset open attempts by outcome (open, absent, error).",
		}, []string{"outcome"}),
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "elements_total",
			Help:      "Elements transferred by operation (read, write, fill).",
		}, []string{"op"}),
		extentChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "extent_changes_total",
			Help:      "Resolutions that changed the virtual dataset extent.",
		}),
		mappingsPerRequest: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "mappings_per_request",
			Help:      "Source datasets touched by one read or write.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}

	// Layouts sharing a registry share collectors.
	var err error
	if m.opens, err = register(reg, m.opens); err != nil {
		return nil, err
	}
	if m.elements, err = register(reg, m.elements); err != nil {
		return nil, err
	}
	if m.extentChanges, err = register(reg, m.extentChanges); err != nil {
		return nil, err
	}
	if m.mappingsPerRequest, err = register(reg, m.mappingsPerRequest); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}
