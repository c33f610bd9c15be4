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

// Package serialradio implements radio.Driver over a serial link to a
// DW1000 companion microcontroller. Commands and events are exchanged as
// length-prefixed frames: a one-byte opcode, a one-byte payload length, and
// the payload. This mirrors the command/response shape the SA53 MAC
// firmware driver uses for its own serial link, adapted from a
// request/response protocol to one with an asynchronous event stream.
package serialradio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/radio"
)

// Opcodes exchanged with the companion microcontroller.
const (
	opInit        byte = 0x01
	opConfigure   byte = 0x02
	opSetEUI      byte = 0x03
	opStartRX     byte = 0x04
	opTransmit    byte = 0x05
	opTXDelayed   byte = 0x06
	opAck         byte = 0x7F
	opEventRX     byte = 0x80
	opEventTX     byte = 0x81
)

const maxPayloadLen = protocol.MaxFrameLen + 32

// Driver talks to a DW1000 companion microcontroller over a serial port.
// It implements radio.Driver.
type Driver struct {
	port io.ReadWriteCloser

	mu         sync.Mutex
	onSent     func(radio.SentFrame)
	onReceived func(radio.ReceivedFrame)

	lastRXPowerDbm   float64
	lastFPPowerDbm   float64
	lastQualityDbm   float64

	closeOnce sync.Once
	done      chan struct{}

	log *logrus.Entry
}

var _ radio.Driver = (*Driver)(nil)

// Open opens the named serial port at the given baud rate and starts the
// background frame reader. The returned Driver owns the port and closes it
// on Close.
func Open(device string, baudRate int, log *logrus.Entry) (*Driver, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("serialradio: open %s: %w", device, err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return newDriver(port, log), nil
}

// newDriver wires up a Driver around any io.ReadWriteCloser and starts its
// background frame reader. Open uses it with a real serial port; tests use
// it with an in-memory pipe.
func newDriver(rwc io.ReadWriteCloser, log *logrus.Entry) *Driver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	d := &Driver{
		port: rwc,
		done: make(chan struct{}),
		log:  log,
	}
	go d.readLoop()
	return d
}

// Init sends the init opcode and returns once it is written; it does not
// wait for an ack from the microcontroller.
func (d *Driver) Init() error {
	return d.writeFrame(opInit, nil)
}

// Configure serializes radio.Config and sends it to the microcontroller.
func (d *Driver) Configure(cfg radio.Config) error {
	payload := make([]byte, 6)
	payload[0] = cfg.Channel
	payload[1] = cfg.PRF
	binary.LittleEndian.PutUint16(payload[2:], cfg.DataRateKbps)
	binary.LittleEndian.PutUint16(payload[4:], cfg.PreambleLen)
	return d.writeFrame(opConfigure, payload)
}

// SetEUI programs the transceiver's extended unique identifier.
func (d *Driver) SetEUI(eui [protocol.EUILen]byte) error {
	return d.writeFrame(opSetEUI, eui[:])
}

// StartRXContinuous puts the transceiver into continuous receive mode.
func (d *Driver) StartRXContinuous() error {
	return d.writeFrame(opStartRX, nil)
}

// Transmit sends frame immediately.
func (d *Driver) Transmit(frame []byte) error {
	if len(frame) > protocol.MaxFrameLen {
		return fmt.Errorf("serialradio: frame too long (%d bytes)", len(frame))
	}
	return d.writeFrame(opTransmit, frame)
}

// TransmitDelayed sends frame at the given future device-time instant.
func (d *Driver) TransmitDelayed(frame []byte, atDeviceTime uint64) error {
	if len(frame) > protocol.MaxFrameLen {
		return fmt.Errorf("serialradio: frame too long (%d bytes)", len(frame))
	}
	payload := make([]byte, 8+len(frame))
	binary.LittleEndian.PutUint64(payload, atDeviceTime)
	copy(payload[8:], frame)
	return d.writeFrame(opTXDelayed, payload)
}

// OnSent registers the callback fired once a transmit completes.
func (d *Driver) OnSent(fn func(radio.SentFrame)) {
	d.mu.Lock()
	d.onSent = fn
	d.mu.Unlock()
}

// OnReceived registers the callback fired for every received frame.
func (d *Driver) OnReceived(fn func(radio.ReceivedFrame)) {
	d.mu.Lock()
	d.onReceived = fn
	d.mu.Unlock()
}

// LastRXPowerDbm reports the diagnostics of the most recently received frame.
func (d *Driver) LastRXPowerDbm() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRXPowerDbm
}

// LastFirstPathPowerDbm reports the diagnostics of the most recently
// received frame.
func (d *Driver) LastFirstPathPowerDbm() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastFPPowerDbm
}

// LastReceiveQuality reports the diagnostics of the most recently received
// frame.
func (d *Driver) LastReceiveQuality() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastQualityDbm
}

// Close stops the read loop and closes the serial port.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		err = d.port.Close()
	})
	return err
}

func (d *Driver) writeFrame(op byte, payload []byte) error {
	if len(payload) > maxPayloadLen {
		return fmt.Errorf("serialradio: payload too long (%d bytes)", len(payload))
	}
	header := []byte{op, byte(len(payload))}
	if _, err := d.port.Write(header); err != nil {
		return fmt.Errorf("serialradio: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := d.port.Write(payload); err != nil {
			return fmt.Errorf("serialradio: write payload: %w", err)
		}
	}
	return nil
}

// readLoop decodes the opcode/length/payload stream from the companion
// microcontroller and dispatches RX/TX events to the registered callbacks
// until Close is called.
func (d *Driver) readLoop() {
	r := bufio.NewReader(d.port)
	header := make([]byte, 2)
	for {
		select {
		case <-d.done:
			return
		default:
		}

		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return
			}
			d.log.WithError(err).Warn("serialradio: header read failed")
			return
		}
		op := header[0]
		n := int(header[1])
		payload := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				d.log.WithError(err).Warn("serialradio: payload read failed")
				return
			}
		}
		d.dispatch(op, payload)
	}
}

func (d *Driver) dispatch(op byte, payload []byte) {
	switch op {
	case opEventRX:
		d.handleEventRX(payload)
	case opEventTX:
		d.handleEventTX(payload)
	case opAck:
		// command acknowledgement, nothing to surface to the engine
	default:
		d.log.WithField("opcode", op).Warn("serialradio: unknown event opcode")
	}
}

// handleEventRX parses an RX event payload: 8-byte timestamp, 3 float64
// diagnostics (24 bytes), then the raw frame bytes.
func (d *Driver) handleEventRX(payload []byte) {
	const fixedLen = 8 + 8 + 8 + 8
	if len(payload) < fixedLen {
		d.log.Warn("serialradio: RX event too short")
		return
	}
	rxTimestamp := binary.LittleEndian.Uint64(payload)
	rxPower := decodeFloat64(payload[8:])
	fpPower := decodeFloat64(payload[16:])
	quality := decodeFloat64(payload[24:])
	frame := payload[fixedLen:]

	d.mu.Lock()
	d.lastRXPowerDbm = rxPower
	d.lastFPPowerDbm = fpPower
	d.lastQualityDbm = quality
	cb := d.onReceived
	d.mu.Unlock()

	if cb != nil {
		cb(radio.ReceivedFrame{
			Data:              frame,
			RXTimestamp:       rxTimestamp,
			RXPowerDbm:        rxPower,
			FirstPathPowerDbm: fpPower,
			QualityDbm:        quality,
		})
	}
}

func (d *Driver) handleEventTX(payload []byte) {
	if len(payload) < 8 {
		d.log.Warn("serialradio: TX event too short")
		return
	}
	txTimestamp := binary.LittleEndian.Uint64(payload)

	d.mu.Lock()
	cb := d.onSent
	d.mu.Unlock()

	if cb != nil {
		cb(radio.SentFrame{TXTimestamp: txTimestamp})
	}
}

func decodeFloat64(b []byte) float64 {
	bits := binary.LittleEndian.Uint64(b)
	return math.Float64frombits(bits)
}
