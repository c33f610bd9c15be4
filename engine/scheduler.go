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
	"github.com/philfung/uwb-twr/peer"
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/stats"
)

// blinkReblinkPeriod is how many POLL ticks a Tag with peers already in its
// table waits before re-announcing itself with a BLINK, giving a newly
// powered-on Anchor a chance to be discovered without waiting for the
// table to empty out first. Not specified numerically by the ranging
// exchange's documentation; chosen to keep rediscovery within a couple of
// seconds at the default 80ms tick.
const blinkReblinkPeriod = 25

// ServiceOnce drains the intake queue, dispatches queued frames through the
// per-role state machine, runs the emission scheduler, and checks
// timeouts/inactivity. It must be called frequently by the host and never
// blocks.
func (e *Engine) ServiceOnce(nowMS int64) {
	e.drainIntake(nowMS)
	e.applyCompletedTX()
	e.checkProtocolTimeouts(nowMS)
	e.pruneInactivePeers(nowMS)
	e.checkGlobalInactivity(nowMS)

	switch e.role {
	case RoleTag:
		e.tickTag(nowMS)
	case RoleAnchor:
		// Anchor is receive-permanent; it only ever transmits in direct
		// response to a POLL or BLINK, handled by dispatchAnchor.
	}
}

// drainIntake dequeues up to the queue's full capacity per call, bounding
// the time spent here even if frames arrive faster than they're consumed.
func (e *Engine) drainIntake(nowMS int64) {
	bound := e.intake.Cap()
	for i := 0; i < bound; i++ {
		it, ok := e.intake.Dequeue()
		if !ok {
			return
		}
		e.lastGlobalActivityMS = nowMS
		switch e.role {
		case RoleTag:
			e.dispatchTag(it)
		case RoleAnchor:
			e.dispatchAnchor(it)
		}
	}
}

// checkProtocolTimeouts forces any peer whose ranging exchange has gone
// silent back to IDLE and raises protocol_error(peer, -1). The reset also
// refreshes the peer's protocol activity, so a later pass does not see it
// as timed out again. A peer is removed from the table here only when the
// pass that first finds it past the soft timeout also finds it past the
// hard timeout; otherwise removal is left to pruneInactivePeers.
func (e *Engine) checkProtocolTimeouts(nowMS int64) {
	softMS := e.cfg.ProtocolTimeout.Milliseconds()
	hardMS := e.cfg.HardProtocolTimeout.Milliseconds()

	var toRemove []uint16
	for _, p := range e.table.All() {
		if !p.IsProtocolActive() {
			continue
		}
		if !p.IsProtocolTimedOut(nowMS, softMS) {
			continue
		}
		e.emitProtocolError(p, ErrCodeProtocolTimeout)
		if p.IsProtocolTimedOut(nowMS, hardMS) {
			toRemove = append(toRemove, p.ShortAddr)
			continue
		}
		p.SubState = peer.StateIdle
		p.ExpectedNext = protocol.MessagePoll
		p.NoteProtocolActivity(nowMS)
	}
	for _, addr := range toRemove {
		if p := e.table.FindByShortAddr(addr); p != nil {
			e.table.Remove(addr)
			e.emitInactivePeer(p)
		}
	}
}

// pruneInactivePeers removes peers that have been silent (no frames at
// all, not just no protocol activity) past InactivityTimeout.
func (e *Engine) pruneInactivePeers(nowMS int64) {
	before := e.table.All()
	removedByIndex := make(map[uint16]*peer.Record, len(before))
	for _, p := range before {
		removedByIndex[p.ShortAddr] = p
	}
	removed := e.table.PruneInactive(nowMS, e.cfg.InactivityTimeout.Milliseconds())
	for _, addr := range removed {
		e.counters.Inc(stats.CounterPeersPruned, 1)
		if p, ok := removedByIndex[addr]; ok {
			e.emitInactivePeer(p)
		}
	}
}

// checkGlobalInactivity implements the "nothing is mid-protocol and
// nothing has happened in a while" reset: every peer's expected_next goes
// back to POLL and the receiver is confirmed armed, matching invariant 3.
func (e *Engine) checkGlobalInactivity(nowMS int64) {
	if e.anyPeerActive() {
		return
	}
	if nowMS-e.lastGlobalActivityMS <= e.resetPeriodMS {
		return
	}
	for _, p := range e.table.All() {
		p.ExpectedNext = protocol.MessagePoll
	}
	if err := e.driver.StartRXContinuous(); err != nil {
		e.log.Warningf("uwbtwr: re-arm receiver after global inactivity: %v", err)
	}
	e.lastGlobalActivityMS = nowMS
}

func (e *Engine) anyPeerActive() bool {
	for _, p := range e.table.All() {
		if p.IsProtocolActive() {
			return true
		}
	}
	return false
}

// tickTag runs the Tag's periodic emission: a BLINK when the table is
// empty or the re-blink counter has elapsed, otherwise a broadcast POLL
// carrying a staggered reply delay per peer.
func (e *Engine) tickTag(nowMS int64) {
	peerCount := e.table.Len()
	elongatedMS := e.cfg.TimerInterval.Milliseconds() + int64(peerCount)*3*int64(e.replyDelayUs)/1000
	if nowMS-e.lastEmitMS < elongatedMS {
		return
	}
	e.lastEmitMS = nowMS

	if peerCount == 0 || e.blinkCounter <= 0 {
		e.emitBlinkFrame()
		e.blinkCounter = blinkReblinkPeriod
		return
	}
	e.blinkCounter--
	e.emitPollFrame(nowMS)
}

func (e *Engine) emitBlinkFrame() {
	n := protocol.EncodeBlink(e.frameBuf, e.eui, e.shortAddr)
	if err := e.transmit(protocol.MessageBlink, e.frameBuf[:n], nil); err != nil {
		e.log.Warningf("uwbtwr: tag BLINK transmit failed: %v", err)
	}
}

func (e *Engine) emitPollFrame(nowMS int64) {
	all := e.table.All()
	polls := make([]protocol.PollPeer, 0, len(all))
	for i, p := range all {
		p.ReplyDelayUs = uint16(2*i+1) * e.replyDelayUs
		polls = append(polls, protocol.PollPeer{ShortAddr: p.ShortAddr, ReplyDelayUs: p.ReplyDelayUs})
	}
	n, err := protocol.EncodePoll(e.frameBuf, e.nextSeq(), e.cfg.NetworkID, e.shortAddr, polls)
	if err != nil {
		e.log.Warningf("uwbtwr: encode POLL: %v", err)
		return
	}
	if err := e.transmit(protocol.MessagePoll, e.frameBuf[:n], nil); err != nil {
		e.log.Warningf("uwbtwr: tag POLL transmit failed: %v", err)
		return
	}
	// Emitting POLL does not move a Tag's peers off IDLE; per the ranging
	// exchange's Tag state machine the only substate transition is on
	// receiving POLL_ACK. Only expected_next changes here.
	for _, p := range all {
		p.ExpectedNext = protocol.MessagePollAck
		p.NoteProtocolActivity(nowMS)
	}
}
