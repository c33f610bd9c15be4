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

package engine

import "github.com/philfung/uwb-twr/peer"

// PeerSnapshot is a read-only, copy-out view of one peer's current state,
// safe for a CLI or exporter to hold onto after the call returns (unlike
// *peer.Record, which the service context keeps mutating).
type PeerSnapshot struct {
	ShortAddr       uint16
	ExtAddr         [8]byte
	SubState        peer.SubState
	ProtocolFailed  bool
	LastSeenMS      int64
	LastRangeM      float64
	LastRXPowerDbm  float64
	LastFirstPathDbm float64
	LastQualityDbm  float64
}

// PeerSnapshot returns a point-in-time copy of the named peer's stats, or
// false if no such peer exists.
func (e *Engine) PeerSnapshot(shortAddr uint16) (PeerSnapshot, bool) {
	p := e.table.FindByShortAddr(shortAddr)
	if p == nil {
		return PeerSnapshot{}, false
	}
	return PeerSnapshot{
		ShortAddr:        p.ShortAddr,
		ExtAddr:          p.ExtAddr,
		SubState:         p.SubState,
		ProtocolFailed:   p.ProtocolFailed,
		LastSeenMS:       p.LastSeenMS,
		LastRangeM:       p.LastRangeM,
		LastRXPowerDbm:   p.LastRXPowerDbm,
		LastFirstPathDbm: p.LastFirstPathDbm,
		LastQualityDbm:   p.LastQualityDbm,
	}, true
}

// AllPeerSnapshots returns a snapshot of every peer currently in the
// table, in table-index order.
func (e *Engine) AllPeerSnapshots() []PeerSnapshot {
	all := e.table.All()
	out := make([]PeerSnapshot, 0, len(all))
	for _, p := range all {
		snap, _ := e.PeerSnapshot(p.ShortAddr)
		out = append(out, snap)
	}
	return out
}
