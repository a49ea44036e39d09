// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stats

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a Sink that exports counters as Prometheus metrics.
//
// Frame counters only ever grow and are exported as a counter vector. Every
// other group is exported as a gauge vector since pool occupancy moves both
// ways.
type Prometheus struct {
	resources *prometheus.GaugeVec
	frame     *prometheus.CounterVec
}

// NewPrometheus creates the metric vectors under namespace and registers them
// with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		resources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_resources",
				Help:      "Pooled GPU resources by pool group and counter name",
			},
			[]string{"group", "name"},
		),
		frame: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frame_events_total",
				Help:      "Draw statistics accumulated over all frames",
			},
			[]string{"name"},
		),
	}
	for _, c := range []prometheus.Collector{p.resources, p.frame} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("stats: register prometheus collector: %w", err)
		}
	}
	return p, nil
}

// Add implements Sink.
func (p *Prometheus) Add(group, name string, delta int64) {
	if group == GroupFrame && delta >= 0 {
		p.frame.WithLabelValues(metricName(name)).Add(float64(delta))
		return
	}
	p.resources.WithLabelValues(group, name).Add(float64(delta))
}

// metricName lowercases a counter name for use as a label value.
func metricName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
