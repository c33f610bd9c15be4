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

import (
	"github.com/philfung/uwb-twr/devtime"
	"github.com/philfung/uwb-twr/peer"
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/queue"
	"github.com/philfung/uwb-twr/stats"
)

// dispatchTag routes one intake item through the Tag's per-peer sub-state
// machine.
func (e *Engine) dispatchTag(it queue.Item) {
	nowMS := e.clock()

	if it.Kind == protocol.MessageRangingInit {
		e.handleRangingInit(it, nowMS)
		return
	}

	p := e.table.FindByShortAddr(it.SourceShort)
	if p == nil {
		e.log.Debugf("uwbtwr: tag dropping %s from unknown peer %04x", it.Kind, it.SourceShort)
		return
	}
	p.NoteSeen(nowMS)

	switch {
	case p.SubState == peer.StateIdle && it.Kind == protocol.MessagePollAck:
		e.tagHandlePollAck(p, it, nowMS)
	case p.SubState == peer.StatePollAckSent && it.Kind == protocol.MessageRangeReport:
		e.tagHandleRangeReport(p, it, nowMS)
	default:
		p.ProtocolFailed = true
		p.ExpectedNext = protocol.MessagePollAck
		p.NoteProtocolActivity(nowMS)
		e.emitProtocolError(p, int(it.Kind))
	}
}

// handleRangingInit adds a newly-seen Anchor that announced itself with
// RANGING_INIT.
func (e *Engine) handleRangingInit(it queue.Item, nowMS int64) {
	if p := e.table.FindByShortAddr(it.SourceShort); p != nil {
		p.NoteSeen(nowMS)
		return
	}
	extAddr, err := decodeRangingInitEUI(it.Frame[:it.FrameLen])
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	p, err := e.table.Add(it.SourceShort, extAddr, nowMS)
	if err != nil {
		e.emitProtocolError(nil, ErrCodePeerTableFull)
		return
	}
	e.counters.Inc(stats.CounterPeersAdded, 1)
	e.emitNewPeer(p)
}

func decodeRangingInitEUI(frame []byte) ([protocol.EUILen]byte, error) {
	var eui [protocol.EUILen]byte
	if len(frame) < protocol.LONGMACLen {
		return eui, errFrameTooShort
	}
	// source EUI occupies the 8 bytes immediately after the destination
	// EUI in a long-MAC header; DecodeSource already validated this shape.
	copy(eui[:], frame[2+1+2+protocol.EUILen:2+1+2+2*protocol.EUILen])
	return eui, nil
}

// tagHandlePollAck records the POLL_ACK receipt and, once every peer in the
// table has reached POLL_ACK_SENT, broadcasts RANGE. Peers can answer in
// any order, so the trigger checks every peer's actual sub-state rather
// than table position.
func (e *Engine) tagHandlePollAck(p *peer.Record, it queue.Item, nowMS int64) {
	p.TPollAckReceived = devtime.Stamp(it.RXTimestamp)
	p.SubState = peer.StatePollAckSent
	p.NoteProtocolActivity(nowMS)

	for _, other := range e.table.All() {
		if other.SubState != peer.StatePollAckSent {
			return
		}
	}
	e.broadcastRange(p, nowMS)
}

// broadcastRange sends one RANGE frame carrying every peer's timestamp
// triplet. trigger is whichever peer's POLL_ACK completed the set (order
// doesn't matter; tagHandlePollAck only calls this once every peer has
// reached POLL_ACK_SENT). t_range_sent can't be read back from the radio
// after the fact (the frame is already on the air by the time OnSent
// fires), so this schedules the transmission itself with TransmitDelayed
// at a precomputed device time, the same trick anchorHandlePoll uses for
// POLL_ACK, and bakes that same instant into the wire bytes up front.
func (e *Engine) broadcastRange(trigger *peer.Record, nowMS int64) {
	all := e.table.All()
	rangeSentAt := trigger.TPollAckReceived.Add(devtime.FromMicroseconds(float64(e.replyDelayUs)))

	peers := make([]protocol.RangePeer, 0, len(all))
	targets := make([]uint16, 0, len(all))
	for _, p := range all {
		p.ExpectedNext = protocol.MessageRangeReport
		var rp protocol.RangePeer
		rp.ShortAddr = p.ShortAddr
		p.TPollSent.PutBytes(rp.PollSent[:])
		p.TPollAckReceived.PutBytes(rp.PollAckReceived[:])
		rangeSentAt.PutBytes(rp.RangeSent[:])
		peers = append(peers, rp)
		targets = append(targets, p.ShortAddr)
	}

	n, err := protocol.EncodeRange(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, e.shortAddr, peers)
	if err != nil {
		e.log.Warningf("uwbtwr: encode RANGE: %v", err)
		return
	}
	if err := e.transmitDelayed(protocol.MessageRange, e.frameBuf[:n], rangeSentAt.Uint64(), targets); err != nil {
		e.log.Warningf("uwbtwr: tag RANGE transmit failed: %v", err)
		return
	}
	// Every peer stays in POLL_ACK_SENT until its own RANGE_REPORT arrives;
	// broadcasting RANGE is an emission, not a state-machine edge.
	for _, p := range all {
		p.NoteProtocolActivity(nowMS)
	}
}

// tagHandleRangeReport reads the computed range back from the Anchor and
// returns the peer to IDLE for the next cycle.
func (e *Engine) tagHandleRangeReport(p *peer.Record, it queue.Item, nowMS int64) {
	rangeM, rxPowerDbm, err := protocol.DecodeRangeReport(it.Frame[:it.FrameLen])
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	v := float64(rangeM)
	if e.enableRangeFilter {
		v = e.rangeFilterFor(p.ShortAddr).Apply(v)
	}
	p.LastRangeM = v
	p.LastRXPowerDbm = float64(rxPowerDbm)
	p.ResetProtocolState(nowMS)
	// ResetProtocolState defaults ExpectedNext to POLL (the Anchor's IDLE
	// expectation); a Tag's IDLE peer instead waits for its next POLL_ACK.
	p.ExpectedNext = protocol.MessagePollAck
	e.counters.Inc(stats.CounterRangesComputed, 1)

	e.lastPeerShortAddr = p.ShortAddr
	e.emitNewRange()
	e.emitRangeComplete(p)
}
