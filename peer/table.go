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

package peer

import (
	"fmt"

	"github.com/philfung/uwb-twr/protocol"
)

// DefaultMaxPeers is the peer table capacity used when a Config does not
// override it. Four simultaneous ranging peers is the default DW1000
// deployment's worst case (one tag, four anchors in view).
const DefaultMaxPeers = 4

// ErrTableFull is returned by Add when the table is already at capacity.
var ErrTableFull = fmt.Errorf("peer: table is full")

// ErrDuplicatePeer is returned by Add when the short address is already
// present in the table.
var ErrDuplicatePeer = fmt.Errorf("peer: duplicate short address")

// Table is a bounded, slice-backed collection of peer Records, indexed by
// short address. It is not safe for concurrent use; callers serialize
// access the same way the engine serializes all peer mutation, from a
// single service goroutine.
type Table struct {
	maxPeers int
	records  []*Record
}

// NewTable creates an empty Table with the given capacity. A maxPeers of
// zero or less falls back to DefaultMaxPeers.
func NewTable(maxPeers int) *Table {
	if maxPeers <= 0 {
		maxPeers = DefaultMaxPeers
	}
	return &Table{
		maxPeers: maxPeers,
		records:  make([]*Record, 0, maxPeers),
	}
}

// Len returns the number of peers currently in the table.
func (t *Table) Len() int { return len(t.records) }

// Cap returns the table's configured capacity.
func (t *Table) Cap() int { return t.maxPeers }

// FindByShortAddr returns the record for shortAddr, or nil if absent.
func (t *Table) FindByShortAddr(shortAddr uint16) *Record {
	for _, r := range t.records {
		if r.ShortAddr == shortAddr {
			return r
		}
	}
	return nil
}

// At returns the record at the given table index, or nil if out of range.
func (t *Table) At(index int) *Record {
	if index < 0 || index >= len(t.records) {
		return nil
	}
	return t.records[index]
}

// All returns the table's records in index order. Callers must not retain
// the slice across a subsequent Add/Remove/Clear.
func (t *Table) All() []*Record {
	return t.records
}

// Add inserts a new peer for shortAddr/extAddr. It fails with
// ErrDuplicatePeer if the short address is already present, and with
// ErrTableFull if the table is at capacity.
func (t *Table) Add(shortAddr uint16, extAddr [protocol.EUILen]byte, nowMS int64) (*Record, error) {
	if t.FindByShortAddr(shortAddr) != nil {
		return nil, ErrDuplicatePeer
	}
	if len(t.records) >= t.maxPeers {
		return nil, ErrTableFull
	}
	r := NewRecord(shortAddr, extAddr, len(t.records), nowMS)
	t.records = append(t.records, r)
	return r, nil
}

// Remove deletes the peer at shortAddr, compacting the table and
// renumbering the Index of every record shifted down. It is a no-op if the
// short address is not present.
func (t *Table) Remove(shortAddr uint16) {
	for i, r := range t.records {
		if r.ShortAddr != shortAddr {
			continue
		}
		t.records = append(t.records[:i], t.records[i+1:]...)
		for j := i; j < len(t.records); j++ {
			t.records[j].Index = j
		}
		return
	}
}

// Clear empties the table. An Anchor calls it when a BLINK from an unknown
// Tag arrives, just before adding that Tag, rather than pruning
// individually.
func (t *Table) Clear() {
	t.records = t.records[:0]
}

// PruneInactive removes every peer whose IsInactive(nowMS, inactivityMS) is
// true and returns their short addresses, so the caller can fire an
// InactivePeer callback per removed peer.
func (t *Table) PruneInactive(nowMS, inactivityMS int64) []uint16 {
	var removed []uint16
	kept := t.records[:0]
	for _, r := range t.records {
		if r.IsInactive(nowMS, inactivityMS) {
			removed = append(removed, r.ShortAddr)
			continue
		}
		kept = append(kept, r)
	}
	t.records = kept
	for i, r := range t.records {
		r.Index = i
	}
	return removed
}
