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
)

// transmit sends frame immediately and records an expectation so the
// eventual OnSent completion can be fanned out to targetAddrs (nil/empty
// meaning "every peer currently in the table", used for broadcasts).
func (e *Engine) transmit(kind protocol.MessageKind, frame []byte, targetAddrs []uint16) error {
	if err := e.driver.Transmit(frame); err != nil {
		return err
	}
	e.pendingTX.expect(pendingTXEntry{kind: kind, targetAddrs: targetAddrs})
	return nil
}

// transmitDelayed schedules frame for the given future device time and
// records the same kind of completion expectation as transmit.
func (e *Engine) transmitDelayed(kind protocol.MessageKind, frame []byte, atDeviceTime uint64, targetAddrs []uint16) error {
	if err := e.driver.TransmitDelayed(frame, atDeviceTime); err != nil {
		return err
	}
	e.pendingTX.expect(pendingTXEntry{kind: kind, targetAddrs: targetAddrs})
	return nil
}

// applyCompletedTX fans out every drained TX-completion timestamp to the
// peers it addressed, per the broadcast/unicast bookkeeping rule in §9 of
// the ranging exchange's design notes.
func (e *Engine) applyCompletedTX() {
	for _, c := range e.pendingTX.drainCompleted() {
		targets := c.targetAddrs
		if len(targets) == 0 {
			for _, p := range e.table.All() {
				e.applyTXTimestamp(p, c.kind, c.deviceTime)
			}
			continue
		}
		for _, addr := range targets {
			if p := e.table.FindByShortAddr(addr); p != nil {
				e.applyTXTimestamp(p, c.kind, c.deviceTime)
			}
		}
	}
}

func (e *Engine) applyTXTimestamp(p *peer.Record, kind protocol.MessageKind, deviceTime uint64) {
	switch kind {
	case protocol.MessagePoll:
		p.TPollSent = devtime.Stamp(deviceTime)
	case protocol.MessagePollAck:
		p.TPollAckSent = devtime.Stamp(deviceTime)
	case protocol.MessageRange:
		p.TRangeSent = devtime.Stamp(deviceTime)
	}
}
