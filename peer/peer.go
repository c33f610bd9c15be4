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

// Package peer implements the per-peer ranging state record and the
// bounded peer table that holds them. Records are mutated only from the
// engine's service context; see engine.Engine for the concurrency model.
package peer

import (
	"fmt"
	"sync/atomic"

	"github.com/philfung/uwb-twr/devtime"
	"github.com/philfung/uwb-twr/protocol"
)

// SubState is a peer's position in the per-peer ranging state machine.
type SubState uint8

// Sub-states, shared by the Tag and Anchor role state machines.
const (
	StateIdle SubState = iota
	StatePollSent
	StatePollAckSent
	StateRangeSent
	StateRangeReportSent
	StateFailed
)

var subStateToString = map[SubState]string{
	StateIdle:            "IDLE",
	StatePollSent:        "POLL_SENT",
	StatePollAckSent:     "POLL_ACK_SENT",
	StateRangeSent:       "RANGE_SENT",
	StateRangeReportSent: "RANGE_REPORT_SENT",
	StateFailed:          "FAILED",
}

func (s SubState) String() string {
	if v, ok := subStateToString[s]; ok {
		return v
	}
	return fmt.Sprintf("SubState(%d)", uint8(s))
}

// ExpectedNext is which message kind a peer's state machine is waiting for.
type ExpectedNext = protocol.MessageKind

// Record is one discovered peer: identity, activity bookkeeping, the raw
// exchange timestamps for the in-flight ranging cycle, and the last
// computed range/quality. A Record belongs to exactly one Table slot; its
// Index must be kept in sync by the Table on add/remove.
type Record struct {
	ShortAddr uint16
	ExtAddr   [protocol.EUILen]byte
	Index     int

	LastSeenMS int64

	ReplyDelayUs uint16

	TPollSent        devtime.Stamp
	TPollReceived    devtime.Stamp
	TPollAckSent     devtime.Stamp
	TPollAckReceived devtime.Stamp
	TRangeSent       devtime.Stamp
	TRangeReceived   devtime.Stamp

	SubState            SubState
	ExpectedNext        ExpectedNext
	ProtocolFailed      bool
	LastProtocolActivityMS int64

	// sentAck/receivedAck are atomics with release-on-write/acquire-on-read
	// semantics instead of plain bools, so they may be written from one
	// goroutine and read from another without a lock. The engine itself
	// never sets them; ResetProtocolState clears them.
	sentAck     atomic.Bool
	receivedAck atomic.Bool

	LastRangeM        float64
	LastRXPowerDbm    float64
	LastFirstPathDbm  float64
	LastQualityDbm    float64
}

// NewRecord creates a fresh, IDLE peer record for the given identity.
func NewRecord(shortAddr uint16, extAddr [protocol.EUILen]byte, index int, nowMS int64) *Record {
	r := &Record{
		ShortAddr:  shortAddr,
		ExtAddr:    extAddr,
		Index:      index,
		LastSeenMS: nowMS,
	}
	r.ResetProtocolState(nowMS)
	return r
}

// ResetProtocolState returns the peer to IDLE, clears the failure flag and
// both ack bits, and stamps last-protocol-activity with now. Calling this
// on an already-IDLE peer is idempotent.
func (r *Record) ResetProtocolState(nowMS int64) {
	r.SubState = StateIdle
	r.ExpectedNext = protocol.MessagePoll
	r.ProtocolFailed = false
	r.sentAck.Store(false)
	r.receivedAck.Store(false)
	r.LastProtocolActivityMS = nowMS
}

// NoteProtocolActivity bumps last-protocol-activity to now. Callers must
// never move this timestamp backwards; the engine always calls this with a
// monotonic clock reading.
func (r *Record) NoteProtocolActivity(nowMS int64) {
	if nowMS > r.LastProtocolActivityMS {
		r.LastProtocolActivityMS = nowMS
	}
}

// NoteSeen bumps the peer's inactivity clock.
func (r *Record) NoteSeen(nowMS int64) {
	if nowMS > r.LastSeenMS {
		r.LastSeenMS = nowMS
	}
}

// IsProtocolTimedOut reports whether the peer's ranging exchange has been
// idle for longer than timeoutMS.
func (r *Record) IsProtocolTimedOut(nowMS int64, timeoutMS int64) bool {
	return nowMS-r.LastProtocolActivityMS > timeoutMS
}

// IsProtocolActive reports whether the peer is mid-exchange (not IDLE and
// not FAILED).
func (r *Record) IsProtocolActive() bool {
	return r.SubState != StateIdle && r.SubState != StateFailed
}

// IsInactive reports whether the peer has been silent for longer than
// inactivityMS and should be pruned.
func (r *Record) IsInactive(nowMS int64, inactivityMS int64) bool {
	return nowMS-r.LastSeenMS > inactivityMS
}

// SetSentAck/SetReceivedAck/SentAck/ReceivedAck give a caller on another
// goroutine a race-free way to signal TX/RX completion without a lock.

// SetSentAck records whether a transmit to this peer has completed.
func (r *Record) SetSentAck(v bool) { r.sentAck.Store(v) }

// SetReceivedAck records whether a frame from this peer has been received.
func (r *Record) SetReceivedAck(v bool) { r.receivedAck.Store(v) }

// SentAck is read from the service context.
func (r *Record) SentAck() bool { return r.sentAck.Load() }

// ReceivedAck is read from the service context.
func (r *Record) ReceivedAck() bool { return r.receivedAck.Load() }
