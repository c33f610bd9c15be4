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

// Package radio declares the hardware abstraction the engine drives to
// send and receive ranging frames. Concrete drivers (serialradio, or a
// test double) implement Driver; the engine never imports a concrete
// driver package directly.
package radio

import "github.com/philfung/uwb-twr/protocol"

// ReceivedFrame is delivered to a Driver's OnReceived callback.
type ReceivedFrame struct {
	Data              []byte
	RXTimestamp       uint64 // raw 40-bit device time, caller wraps in devtime.Stamp
	RXPowerDbm        float64
	FirstPathPowerDbm float64
	QualityDbm        float64
}

// SentFrame is delivered to a Driver's OnSent callback.
type SentFrame struct {
	TXTimestamp uint64
}

// Driver is the hardware abstraction for a DW1000-class UWB transceiver.
// Implementations must be safe for the engine to call Transmit/
// TransmitDelayed from its single service goroutine while RX/TX completion
// callbacks fire from whatever context the driver's I/O loop runs on.
type Driver interface {
	// Init brings up the transceiver and applies its default radio
	// configuration (channel, PRF, data rate, preamble).
	Init() error

	// Configure applies operator-tunable radio parameters. It may be
	// called again after Init to change channel/rate without a full
	// re-init.
	Configure(cfg Config) error

	// SetEUI programs the transceiver's extended unique identifier.
	SetEUI(eui [protocol.EUILen]byte) error

	// StartRXContinuous puts the transceiver into continuous receive mode.
	StartRXContinuous() error

	// Transmit sends frame immediately.
	Transmit(frame []byte) error

	// TransmitDelayed sends frame at the given future device-time instant,
	// used to honor ReplyDelayUs for POLL_ACK/RANGE transmissions.
	TransmitDelayed(frame []byte, atDeviceTime uint64) error

	// OnSent registers the callback fired once a Transmit/TransmitDelayed
	// completes. Registering again replaces the previous callback.
	OnSent(fn func(SentFrame))

	// OnReceived registers the callback fired for every received frame.
	// Registering again replaces the previous callback.
	OnReceived(fn func(ReceivedFrame))

	// LastRXPowerDbm, LastFirstPathPowerDbm and LastReceiveQuality report
	// the diagnostics of the most recently received frame.
	LastRXPowerDbm() float64
	LastFirstPathPowerDbm() float64
	LastReceiveQuality() float64

	// Close releases the underlying transport.
	Close() error
}

// Config is the subset of transceiver settings the engine cares about.
// Implementations may support more through their own constructors.
type Config struct {
	Channel      uint8
	PRF          uint8
	DataRateKbps uint16
	PreambleLen  uint16
}
