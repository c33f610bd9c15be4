/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// collector adapts a Counters snapshot to the prometheus.Collector
// interface. Counter names are dynamic (one gauge per key in the counters
// snapshot), so it describes nothing up front and instead
// emits one const gauge per key at collection time.
type collector struct {
	counters *Counters
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic metric set: intentionally unchecked collector, per
	// prometheus.Collector's documented escape hatch for this case.
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for key, val := range c.counters.Snapshot() {
		desc := prometheus.NewDesc(flattenKey(key), key, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(val))
	}
}

// PrometheusExporter serves the engine's Counters as Prometheus gauges over
// HTTP. Unlike a client that scrapes a separate process's /counters
// endpoint, the exporter reads directly from the in-process Counters it was
// built with, since the engine and exporter always run in the same binary.
type PrometheusExporter struct {
	registry   *prometheus.Registry
	listenPort int
	statusFn   func() any
}

// NewPrometheusExporter creates a PrometheusExporter that will serve
// counters on listenPort.
func NewPrometheusExporter(counters *Counters, listenPort int) *PrometheusExporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&collector{counters: counters})
	return &PrometheusExporter{registry: reg, listenPort: listenPort}
}

// RegisterStatusFn wires a callback that produces the JSON payload served
// at /status, letting a remote `status` client read live peer state
// without sharing the engine's process. Unset by default: /status 404s
// until a caller opts in, since not every exporter has peer state to show.
func (e *PrometheusExporter) RegisterStatusFn(fn func() any) {
	e.statusFn = fn
}

// Start registers the /metrics and (if RegisterStatusFn was called)
// /status handlers and blocks serving HTTP. Callers typically run it in
// its own goroutine.
func (e *PrometheusExporter) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		e.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	if e.statusFn != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(e.statusFn()); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
	}
	return http.ListenAndServe(fmt.Sprintf(":%d", e.listenPort), mux)
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
