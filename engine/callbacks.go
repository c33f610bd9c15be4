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
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/queue"
	"github.com/philfung/uwb-twr/radio"
)

// onReceived is registered with the radio driver and may run on whatever
// goroutine the driver's I/O loop uses. It touches the intake queue (safe
// for this single-producer use), the clock and the counters, and fires the
// ProtocolError callback with ErrCodeQueueOverflow when the queue is full.
func (e *Engine) onReceived(f radio.ReceivedFrame) {
	kind := protocol.DecodeKind(f.Data)
	if kind == protocol.MessageUnknown {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	source, err := protocol.DecodeSource(f.Data, kind)
	if err != nil {
		e.counters.Inc("uwbtwr.frame_decode_errors", 1)
		return
	}
	meta := queue.Meta{
		SourceShort:       source,
		Kind:              kind,
		RXTimestamp:       f.RXTimestamp,
		RXPowerDbm:        f.RXPowerDbm,
		FirstPathPowerDbm: f.FirstPathPowerDbm,
		QualityDbm:        f.QualityDbm,
		ArrivalMS:         e.clock(),
	}
	if !e.intake.Enqueue(f.Data, meta) {
		e.emitProtocolError(nil, ErrCodeQueueOverflow)
	}
}

// onSent is registered with the radio driver. It records the TX-completion
// timestamp for later fan-out by the service context; see pendingTX.
func (e *Engine) onSent(f radio.SentFrame) {
	e.pendingTX.complete(f.TXTimestamp)
}
