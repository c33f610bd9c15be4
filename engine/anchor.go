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
	"fmt"

	"github.com/philfung/uwb-twr/devtime"
	"github.com/philfung/uwb-twr/peer"
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/queue"
	"github.com/philfung/uwb-twr/rangemath"
	"github.com/philfung/uwb-twr/stats"
)

// errFrameTooShort is returned by frame-body decoders in this file that
// don't already have a dedicated protocol-package error.
var errFrameTooShort = fmt.Errorf("engine: frame too short")

// dispatchAnchor routes one intake item through the Anchor's per-peer
// sub-state machine, grounded on the per-exchange timestamp bookkeeping
// idiom and the single per-peer dispatch this role never shares across
// peers.
func (e *Engine) dispatchAnchor(it queue.Item) {
	nowMS := e.clock()

	if it.Kind == protocol.MessageBlink {
		e.handleBlink(it, nowMS)
		return
	}

	p := e.table.FindByShortAddr(it.SourceShort)
	if p == nil {
		e.log.Debugf("uwbtwr: anchor dropping %s from unknown peer %04x", it.Kind, it.SourceShort)
		return
	}
	p.NoteSeen(nowMS)

	switch {
	case (p.SubState == peer.StateIdle || p.SubState == peer.StateRangeReportSent || p.SubState == peer.StateFailed) && it.Kind == protocol.MessagePoll:
		// A POLL always restarts the exchange: after a completed one
		// (RANGE_REPORT_SENT), or for a peer parked in FAILED by a prior
		// unexpected message — recoverable at next POLL.
		p.ProtocolFailed = false
		e.anchorHandlePoll(p, it, nowMS)
	case p.SubState == peer.StatePollSent && it.Kind == protocol.MessageRange:
		e.anchorHandleRange(p, it, nowMS)
	default:
		p.ProtocolFailed = true
		p.SubState = peer.StateFailed
		p.NoteProtocolActivity(nowMS)
		e.emitProtocolError(p, int(it.Kind))
	}
}

// handleBlink adds a newly-seen Tag (resetting the table first, per the
// reference Anchor's single-active-Tag discipline) and answers with
// RANGING_INIT.
func (e *Engine) handleBlink(it queue.Item, nowMS int64) {
	if p := e.table.FindByShortAddr(it.SourceShort); p != nil {
		p.NoteSeen(nowMS)
		return
	}

	extAddr, err := decodeBlinkEUI(it.Frame[:it.FrameLen])
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}

	e.table.Clear()
	p, err := e.table.Add(it.SourceShort, extAddr, nowMS)
	if err != nil {
		e.emitProtocolError(nil, ErrCodePeerTableFull)
		return
	}
	e.counters.Inc(stats.CounterPeersAdded, 1)

	n, err := protocol.EncodeRangingInit(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, extAddr, e.eui)
	if err != nil {
		e.log.Warningf("uwbtwr: encode RANGING_INIT: %v", err)
		return
	}
	if err := e.transmit(protocol.MessageRangingInit, e.frameBuf[:n], []uint16{p.ShortAddr}); err != nil {
		e.log.Warningf("uwbtwr: anchor RANGING_INIT transmit failed: %v", err)
	}
	e.emitBlinkPeer(p)
}

func decodeBlinkEUI(frame []byte) ([protocol.EUILen]byte, error) {
	var eui [protocol.EUILen]byte
	if len(frame) < 1+protocol.EUILen {
		return eui, errFrameTooShort
	}
	copy(eui[:], frame[1:1+protocol.EUILen])
	return eui, nil
}

// anchorHandlePoll answers a POLL from an IDLE peer with a delayed
// POLL_ACK, reprogramming this peer's reply delay from the broadcast
// payload first.
func (e *Engine) anchorHandlePoll(p *peer.Record, it queue.Item, nowMS int64) {
	polls, err := protocol.DecodePoll(it.Frame[:it.FrameLen])
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	for _, pp := range polls {
		if pp.ShortAddr == p.ShortAddr {
			p.ReplyDelayUs = pp.ReplyDelayUs
			break
		}
	}

	p.TPollReceived = devtime.Stamp(it.RXTimestamp)
	p.LastRXPowerDbm = it.RXPowerDbm
	p.LastFirstPathDbm = it.FirstPathPowerDbm
	p.LastQualityDbm = it.QualityDbm

	n, err := protocol.EncodeSimpleShortMAC(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, p.ShortAddr, e.shortAddr, protocol.MessagePollAck)
	if err != nil {
		e.log.Warningf("uwbtwr: encode POLL_ACK: %v", err)
		return
	}
	atDeviceTime := p.TPollReceived.Add(devtime.FromMicroseconds(float64(p.ReplyDelayUs))).Uint64()
	frame := e.frameBuf[:n]
	if err := e.transmitDelayed(protocol.MessagePollAck, frame, atDeviceTime, []uint16{p.ShortAddr}); err != nil {
		e.log.Warningf("uwbtwr: anchor POLL_ACK transmit failed: %v", err)
		return
	}

	p.SubState = peer.StatePollSent
	p.ExpectedNext = protocol.MessageRange
	p.NoteProtocolActivity(nowMS)
}

// anchorHandleRange completes the exchange: extracts this anchor's
// timestamp triplet from the broadcast RANGE payload, computes TOF, and
// replies with RANGE_REPORT or RANGE_FAILED.
func (e *Engine) anchorHandleRange(p *peer.Record, it queue.Item, nowMS int64) {
	peers, err := protocol.DecodeRange(it.Frame[:it.FrameLen])
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	p.TRangeReceived = devtime.Stamp(it.RXTimestamp)

	var found bool
	for _, rp := range peers {
		if rp.ShortAddr != p.ShortAddr {
			continue
		}
		found = true
		pollSent, errA := devtime.FromBytes(rp.PollSent[:])
		pollAckReceived, errB := devtime.FromBytes(rp.PollAckReceived[:])
		rangeSent, errC := devtime.FromBytes(rp.RangeSent[:])
		if errA != nil || errB != nil || errC != nil {
			e.counters.Inc("uwbtwr.frame_decode_errors", 1)
			return
		}
		p.TPollSent = pollSent
		p.TPollAckReceived = pollAckReceived
		p.TRangeSent = rangeSent
	}
	if !found {
		e.log.Debugf("uwbtwr: anchor %04x absent from broadcast RANGE", p.ShortAddr)
		return
	}

	if p.ProtocolFailed {
		e.sendRangeFailed(p, nowMS)
		return
	}

	ts := rangemath.Timestamps{
		PollSent:        p.TPollSent,
		PollReceived:    p.TPollReceived,
		PollAckSent:     p.TPollAckSent,
		PollAckReceived: p.TPollAckReceived,
		RangeSent:       p.TRangeSent,
		RangeReceived:   p.TRangeReceived,
	}
	rangeM, err := rangemath.Range(ts)
	if err != nil {
		e.counters.Inc(stats.CounterRangesFailed, 1)
		e.sendRangeFailed(p, nowMS)
		return
	}
	if e.enableRangeFilter {
		rangeM = e.rangeFilterFor(p.ShortAddr).Apply(rangeM)
	}
	p.LastRangeM = rangeM
	p.LastRXPowerDbm = it.RXPowerDbm
	p.LastQualityDbm = it.QualityDbm
	e.counters.Inc(stats.CounterRangesComputed, 1)

	n, err := protocol.EncodeRangeReport(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, p.ShortAddr, e.shortAddr, float32(rangeM), float32(it.RXPowerDbm))
	if err != nil {
		e.log.Warningf("uwbtwr: encode RANGE_REPORT: %v", err)
		return
	}
	if err := e.transmit(protocol.MessageRangeReport, e.frameBuf[:n], []uint16{p.ShortAddr}); err != nil {
		e.log.Warningf("uwbtwr: anchor RANGE_REPORT transmit failed: %v", err)
	}

	p.SubState = peer.StateRangeReportSent
	p.ExpectedNext = protocol.MessagePoll
	p.NoteProtocolActivity(nowMS)
	e.lastPeerShortAddr = p.ShortAddr
	e.emitRangeComplete(p)
}

func (e *Engine) sendRangeFailed(p *peer.Record, nowMS int64) {
	n, err := protocol.EncodeSimpleShortMAC(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, p.ShortAddr, e.shortAddr, protocol.MessageRangeFailed)
	if err == nil {
		if txErr := e.transmit(protocol.MessageRangeFailed, e.frameBuf[:n], []uint16{p.ShortAddr}); txErr != nil {
			e.log.Warningf("uwbtwr: anchor RANGE_FAILED transmit failed: %v", txErr)
		}
	}
	p.SubState = peer.StateFailed
	p.ExpectedNext = protocol.MessagePoll
	p.NoteProtocolActivity(nowMS)
}
