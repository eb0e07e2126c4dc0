// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Metrics wires a prometheus.Registry into the replica's event loop the
// way poll/default.go wires one into its Factory, exposing counters for
// each message kind processed and a histogram for time-to-termination
// (grounded on the Rust original's cx.add_benchmark calls in
// batchwss_echo.rs).
package wss

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the instance-wide Prometheus collectors for one
// ReplicaContext.
type Metrics struct {
	InitProcessed     prometheus.Counter
	EchoProcessed     prometheus.Counter
	ReadyProcessed    prometheus.Counter
	Terminated        prometheus.Counter
	Failed            prometheus.Counter
	TimeToTermination prometheus.Histogram
}

// NewMetrics registers and returns a Metrics bound to reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		InitProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weakcoin_wss_init_processed_total",
			Help: "Number of INIT-class messages processed.",
		}),
		EchoProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weakcoin_wss_echo_processed_total",
			Help: "Number of ECHO-class messages processed.",
		}),
		ReadyProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weakcoin_wss_ready_processed_total",
			Help: "Number of READY-class messages processed.",
		}),
		Terminated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weakcoin_wss_terminated_total",
			Help: "Number of instances that reached Terminated.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weakcoin_wss_failed_total",
			Help: "Number of instances that permanently failed.",
		}),
		TimeToTermination: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weakcoin_wss_time_to_termination_seconds",
			Help:    "Wall-clock seconds from instance creation to termination.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.InitProcessed, m.EchoProcessed, m.ReadyProcessed, m.Terminated, m.Failed, m.TimeToTermination,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
