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

// Package stats holds the engine's running counters and exposes them as
// Prometheus gauges.
package stats

import (
	"strings"
	"sync"
)

// Counter name prefixes, mirroring the port-stats/sys-stats split so a
// scraper can separate per-message-kind counters from engine-wide ones.
const (
	TXPrefix = "uwbtwr.tx."
	RXPrefix = "uwbtwr.rx."
)

// Well-known counter names.
const (
	CounterRangesComputed  = "uwbtwr.ranges_computed"
	CounterRangesFailed    = "uwbtwr.ranges_failed"
	CounterPeersAdded      = "uwbtwr.peers_added"
	CounterPeersPruned     = "uwbtwr.peers_pruned"
	CounterQueueDropped    = "uwbtwr.queue_dropped"
	CounterProtocolTimeout = "uwbtwr.protocol_timeouts"
)

// Counters is a mutex-protected set of named running counts, safe to
// increment from the engine's service goroutine and read concurrently from
// an HTTP handler or CLI command.
type Counters struct {
	mu sync.Mutex
	m  map[string]int64
}

// New creates an empty Counters set.
func New() *Counters {
	return &Counters{m: make(map[string]int64)}
}

// Inc increments the named counter by delta, creating it at delta if it
// does not yet exist.
func (c *Counters) Inc(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[name] += delta
}

// Set overwrites the named counter's value.
func (c *Counters) Set(name string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[name] = value
}

// Get returns the named counter's current value, or 0 if unset.
func (c *Counters) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[name]
}

// Snapshot returns a copy of every counter's current value.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// MessageTX/MessageRX are convenience helpers for bumping per-kind
// transmit/receive counters. The engine itself does not call them.
func (c *Counters) MessageTX(kind string) { c.Inc(TXPrefix+kind, 1) }
func (c *Counters) MessageRX(kind string) { c.Inc(RXPrefix+kind, 1) }

// PortStats splits the snapshot into TX and RX maps keyed by message kind,
// the same split a port-stats dashboard panel expects.
func (c *Counters) PortStats() (tx map[string]int64, rx map[string]int64) {
	tx = map[string]int64{}
	rx = map[string]int64{}
	for k, v := range c.Snapshot() {
		switch {
		case strings.HasPrefix(k, TXPrefix):
			tx[strings.TrimPrefix(k, TXPrefix)] = v
		case strings.HasPrefix(k, RXPrefix):
			rx[strings.TrimPrefix(k, RXPrefix)] = v
		}
	}
	return tx, rx
}
