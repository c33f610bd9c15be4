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

package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKind(t *testing.T) {
	tests := []struct {
		in   []byte
		want MessageKind
	}{
		{in: []byte{}, want: MessageUnknown},
		{in: []byte{0x99, 0x00}, want: MessageUnknown},
		{in: []byte{blinkFrameID, 1, 2, 3}, want: MessageBlink},
	}
	buf := make([]byte, 32)
	EncodeShortMACHeader(buf, 1, DefaultNetworkID, BroadcastShortAddr, 0x0101)
	buf[SHORTMACLen] = byte(MessagePollAck)
	tests = append(tests, struct {
		in   []byte
		want MessageKind
	}{in: buf[:SHORTMACLen+1], want: MessagePollAck})

	for _, tt := range tests {
		t.Run(fmt.Sprintf("in=%v", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeKind(tt.in))
		})
	}
}

func TestDecodeKindShortMACTruncated(t *testing.T) {
	buf := make([]byte, SHORTMACLen)
	EncodeShortMACHeader(buf, 1, DefaultNetworkID, BroadcastShortAddr, 0x0101)
	assert.Equal(t, MessageUnknown, DecodeKind(buf))
}

func TestBlinkRoundTrip(t *testing.T) {
	eui := [EUILen]byte{0x7D, 0x00, 0x22, 0xEA, 0x82, 0x60, 0x3B, 0x9C}
	buf := make([]byte, 32)
	n := EncodeBlink(buf, eui, 0x7D00)
	frame := buf[:n]
	require.Equal(t, MessageBlink, DecodeKind(frame))
	src, err := DecodeSource(frame, MessageBlink)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x7D00), src)
}

func TestPollRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	peers := []PollPeer{
		{ShortAddr: 0x0101, ReplyDelayUs: 7000},
		{ShortAddr: 0x0202, ReplyDelayUs: 21000},
	}
	n, err := EncodePoll(buf, 1, DefaultNetworkID, 0x7D00, peers)
	require.NoError(t, err)
	frame := buf[:n]
	require.Equal(t, MessagePoll, DecodeKind(frame))

	src, err := DecodeSource(frame, MessagePoll)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x7D00), src)

	dest, err := DecodeDest(frame)
	require.NoError(t, err)
	assert.Equal(t, BroadcastShortAddr, dest)

	got, err := DecodePoll(frame)
	require.NoError(t, err)
	assert.Equal(t, peers, got)
}

func TestRangeRoundTrip(t *testing.T) {
	buf := make([]byte, 128)
	peers := []RangePeer{
		{ShortAddr: 0x0101, PollSent: [5]byte{1, 2, 3, 4, 5}, PollAckReceived: [5]byte{6, 7, 8, 9, 10}, RangeSent: [5]byte{11, 12, 13, 14, 15}},
		{ShortAddr: 0x0202, PollSent: [5]byte{9, 9, 9, 9, 9}},
	}
	n, err := EncodeRange(buf, 1, DefaultNetworkID, 0x7D00, peers)
	require.NoError(t, err)
	frame := buf[:n]
	require.Equal(t, MessageRange, DecodeKind(frame))

	got, err := DecodeRange(frame)
	require.NoError(t, err)
	assert.Equal(t, peers, got)
}

func TestRangeReportRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	n, err := EncodeRangeReport(buf, 1, DefaultNetworkID, 0x0101, 0x7D00, 2.5, -78.3)
	require.NoError(t, err)
	frame := buf[:n]
	require.Equal(t, MessageRangeReport, DecodeKind(frame))
	rangeM, rxPower, err := DecodeRangeReport(frame)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, rangeM, 1e-6)
	assert.InDelta(t, -78.3, rxPower, 1e-4)
}

func TestRangingInitRoundTrip(t *testing.T) {
	destEUI := [EUILen]byte{0x7D, 0x00, 0x22, 0xEA, 0x82, 0x60, 0x3B, 0x9C}
	srcEUI := [EUILen]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	buf := make([]byte, 32)
	n, err := EncodeRangingInit(buf, 1, DefaultNetworkID, destEUI, srcEUI)
	require.NoError(t, err)
	frame := buf[:n]
	require.Equal(t, MessageRangingInit, DecodeKind(frame))
	src, err := DecodeSource(frame, MessageRangingInit)
	require.NoError(t, err)
	assert.Equal(t, NewShortAddrFromEUI(srcEUI[:]), src)
}

func TestFrameBufLenCoversFourPeerRange(t *testing.T) {
	buf := make([]byte, 120)
	peers := make([]RangePeer, 4)
	for i := range peers {
		peers[i].ShortAddr = uint16(0x0101 * (i + 1))
	}
	n, err := EncodeRange(buf, 1, DefaultNetworkID, 0x7D00, peers)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 120)
	assert.Equal(t, SHORTMACLen+1+1+4*rangePeerWireLen, n)
}
