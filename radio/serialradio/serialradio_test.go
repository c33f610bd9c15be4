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

package serialradio

import (
	"encoding/binary"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/radio"
)

// pipeConn adapts a net.Conn half to io.ReadWriteCloser, which is all the
// Driver needs from a transport.
type pipeConn struct {
	net.Conn
}

func newTestDriver(t *testing.T) (*Driver, net.Conn) {
	t.Helper()
	client, mcu := net.Pipe()
	d := newDriver(pipeConn{client}, nil)
	t.Cleanup(func() { d.Close() })
	return d, mcu
}

func readFrame(t *testing.T, conn net.Conn) (op byte, payload []byte) {
	t.Helper()
	header := make([]byte, 2)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)
	payload = make([]byte, header[1])
	if len(payload) > 0 {
		_, err = io.ReadFull(conn, payload)
		require.NoError(t, err)
	}
	return header[0], payload
}

func TestTransmitWritesFramedCommand(t *testing.T) {
	drv, mcu := newTestDriver(t)

	done := make(chan struct{})
	go func() {
		op, payload := readFrame(t, mcu)
		assert.Equal(t, opTransmit, op)
		assert.Equal(t, []byte{1, 2, 3}, payload)
		close(done)
	}()

	require.NoError(t, drv.Transmit([]byte{1, 2, 3}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestTransmitRejectsOversizeFrame(t *testing.T) {
	drv, _ := newTestDriver(t)
	oversize := make([]byte, protocol.MaxFrameLen+1)
	err := drv.Transmit(oversize)
	require.Error(t, err)
}

func TestTransmitDelayedEncodesDeviceTime(t *testing.T) {
	drv, mcu := newTestDriver(t)

	done := make(chan struct{})
	go func() {
		op, payload := readFrame(t, mcu)
		assert.Equal(t, opTXDelayed, op)
		require.GreaterOrEqual(t, len(payload), 8)
		assert.Equal(t, uint64(999), binary.LittleEndian.Uint64(payload))
		assert.Equal(t, []byte{9, 8, 7}, payload[8:])
		close(done)
	}()

	require.NoError(t, drv.TransmitDelayed([]byte{9, 8, 7}, 999))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestEventRXDispatchesToCallback(t *testing.T) {
	drv, mcu := newTestDriver(t)

	gotCh := make(chan radio.ReceivedFrame, 1)
	drv.OnReceived(func(f radio.ReceivedFrame) {
		gotCh <- f
	})

	payload := make([]byte, 32)
	binary.LittleEndian.PutUint64(payload, 123456789)
	binary.LittleEndian.PutUint64(payload[8:], math.Float64bits(-70.5))
	binary.LittleEndian.PutUint64(payload[16:], math.Float64bits(-72.1))
	binary.LittleEndian.PutUint64(payload[24:], math.Float64bits(95.0))
	frameBytes := []byte{0xC5, 1, 2, 3}
	payload = append(payload, frameBytes...)

	go func() {
		mcu.Write([]byte{opEventRX, byte(len(payload))})
		mcu.Write(payload)
	}()

	select {
	case got := <-gotCh:
		assert.Equal(t, frameBytes, got.Data)
		assert.Equal(t, uint64(123456789), got.RXTimestamp)
		assert.InDelta(t, -70.5, got.RXPowerDbm, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RX dispatch")
	}
	assert.InDelta(t, -70.5, drv.LastRXPowerDbm(), 1e-9)
}

func TestEventTXDispatchesToCallback(t *testing.T) {
	drv, mcu := newTestDriver(t)

	gotCh := make(chan radio.SentFrame, 1)
	drv.OnSent(func(f radio.SentFrame) {
		gotCh <- f
	})

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, 42)
	go func() {
		mcu.Write([]byte{opEventTX, byte(len(payload))})
		mcu.Write(payload)
	}()

	select {
	case got := <-gotCh:
		assert.Equal(t, uint64(42), got.TXTimestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TX dispatch")
	}
}
