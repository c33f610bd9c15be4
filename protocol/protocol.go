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

// Package protocol implements the DecaWave-style MAC framing used by the
// ranging exchange: blink, short-MAC and long-MAC frame shapes, and the
// wire bodies of POLL/POLL_ACK/RANGE/RANGE_REPORT/RANGE_FAILED/BLINK/
// RANGING_INIT.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MessageKind identifies the ranging exchange message carried by a frame.
type MessageKind uint8

// Wire constants for MessageKind, per the ranging exchange documentation.
const (
	MessagePoll        MessageKind = 0
	MessagePollAck     MessageKind = 1
	MessageRange       MessageKind = 2
	MessageRangeReport MessageKind = 3
	MessageBlink       MessageKind = 4
	MessageRangingInit MessageKind = 5
	MessageRangeFailed MessageKind = 255
	// MessageUnknown is never put on the wire. DecodeKind returns it when no
	// frame shape recognises the input, so the dispatcher has something
	// explicit to drop instead of silently defaulting to MessagePoll.
	MessageUnknown MessageKind = 0xFE
)

// messageKindToString maps MessageKind to its human-readable name.
var messageKindToString = map[MessageKind]string{
	MessagePoll:        "POLL",
	MessagePollAck:     "POLL_ACK",
	MessageRange:       "RANGE",
	MessageRangeReport: "RANGE_REPORT",
	MessageBlink:       "BLINK",
	MessageRangingInit: "RANGING_INIT",
	MessageRangeFailed: "RANGE_FAILED",
	MessageUnknown:     "UNKNOWN",
}

func (m MessageKind) String() string {
	if s, ok := messageKindToString[m]; ok {
		return s
	}
	return fmt.Sprintf("MessageKind(%d)", uint8(m))
}

// Frame shape markers, first (and sometimes second) byte of the wire frame.
const (
	blinkFrameID      byte = 0xC5
	macFrameID        byte = 0x41
	shortMACFrameCtrl byte = 0x88
	longMACFrameCtrl  byte = 0x8C
)

// EUILen is the length in bytes of an extended unique identifier.
const EUILen = 8

// ShortAddrLen is the length in bytes of a short address.
const ShortAddrLen = 2

// BroadcastShortAddr is the reserved short address meaning "all peers".
const BroadcastShortAddr uint16 = 0xFFFF

// DefaultNetworkID is the default 16-bit PAN identifier used by the
// ranging exchange.
const DefaultNetworkID uint16 = 0xDECA

// MaxFrameLen is the 802.15.4 MTU the ranging exchange's frames must fit
// within. DefaultFrameBufLen is the configurable buffer size actually used
// by the intake queue and transmit path, leaving headroom under the MTU.
const (
	MaxFrameLen        = 127
	DefaultFrameBufLen = 120
)

// SHORTMACLen is the offset of the message-kind byte in a short-MAC frame:
// 0x41, 0x88, sequence(1), PAN(2), dest short(2), src short(2).
const SHORTMACLen = 2 + 1 + 2 + 2 + 2

// LONGMACLen is the offset of the message-kind byte in a long-MAC frame:
// 0x41, 0x8C, sequence(1), PAN(2), dest EUI(8), src EUI(8).
const LONGMACLen = 2 + 1 + 2 + EUILen + EUILen

// offsets within a short-MAC prefix
const (
	shortMACSeqOff  = 2
	shortMACPANOff  = 3
	shortMACDestOff = 5
	shortMACSrcOff  = 7
)

// offsets within a long-MAC prefix
const (
	longMACSeqOff  = 2
	longMACPANOff  = 3
	longMACDestOff = 5
	longMACSrcOff  = 5 + EUILen
)

// FrameShape distinguishes the three MAC frame shapes by their header bytes.
type FrameShape uint8

// Frame shapes.
const (
	ShapeUnknown FrameShape = iota
	ShapeBlink
	ShapeShortMAC
	ShapeLongMAC
)

// DecodeShape inspects the first bytes of frame and returns which shape it is.
func DecodeShape(frame []byte) FrameShape {
	if len(frame) < 1 {
		return ShapeUnknown
	}
	switch frame[0] {
	case blinkFrameID:
		return ShapeBlink
	case macFrameID:
		if len(frame) < 2 {
			return ShapeUnknown
		}
		switch frame[1] {
		case shortMACFrameCtrl:
			return ShapeShortMAC
		case longMACFrameCtrl:
			return ShapeLongMAC
		}
	}
	return ShapeUnknown
}

// DecodeKind returns the MessageKind carried by frame, or MessageUnknown if
// the frame is too short or its shape is unrecognised. Blink frames always
// decode to MessageBlink since they carry no explicit kind byte.
func DecodeKind(frame []byte) MessageKind {
	switch DecodeShape(frame) {
	case ShapeBlink:
		return MessageBlink
	case ShapeShortMAC:
		if len(frame) <= SHORTMACLen {
			return MessageUnknown
		}
		return MessageKind(frame[SHORTMACLen])
	case ShapeLongMAC:
		if len(frame) <= LONGMACLen {
			return MessageUnknown
		}
		return MessageKind(frame[LONGMACLen])
	default:
		return MessageUnknown
	}
}

// DecodeSource extracts the 2-byte source short address of frame, given its
// kind. For blink frames the short address follows the 8-byte EUI. For
// RANGING_INIT (long-MAC, EUI addressed) the short address is derived from
// the source EUI the same way a newly-seen device derives its own.
func DecodeSource(frame []byte, kind MessageKind) (uint16, error) {
	switch kind {
	case MessageBlink:
		if len(frame) < 1+EUILen+ShortAddrLen {
			return 0, fmt.Errorf("protocol: blink frame too short (%d bytes)", len(frame))
		}
		return binary.LittleEndian.Uint16(frame[1+EUILen:]), nil
	case MessageRangingInit:
		if len(frame) < longMACSrcOff+EUILen {
			return 0, fmt.Errorf("protocol: long-MAC frame too short (%d bytes)", len(frame))
		}
		return NewShortAddrFromEUI(frame[longMACSrcOff : longMACSrcOff+EUILen]), nil
	default:
		if len(frame) < shortMACSrcOff+ShortAddrLen {
			return 0, fmt.Errorf("protocol: short-MAC frame too short (%d bytes)", len(frame))
		}
		return binary.LittleEndian.Uint16(frame[shortMACSrcOff:]), nil
	}
}

// DecodeDest extracts the 2-byte destination short address of a short-MAC
// frame.
func DecodeDest(frame []byte) (uint16, error) {
	if len(frame) < shortMACDestOff+ShortAddrLen {
		return 0, fmt.Errorf("protocol: short-MAC frame too short (%d bytes)", len(frame))
	}
	return binary.LittleEndian.Uint16(frame[shortMACDestOff:]), nil
}

// NewShortAddrFromEUI derives a short address from the first two bytes of
// an 8-byte EUI, per the identity rules in the data model.
func NewShortAddrFromEUI(eui []byte) uint16 {
	if len(eui) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(eui[:2])
}

// EncodeBlink writes a blink frame to b and returns the number of bytes
// written. b must be at least 1+EUILen+ShortAddrLen long.
func EncodeBlink(b []byte, eui [EUILen]byte, shortAddr uint16) int {
	b[0] = blinkFrameID
	copy(b[1:], eui[:])
	binary.LittleEndian.PutUint16(b[1+EUILen:], shortAddr)
	return 1 + EUILen + ShortAddrLen
}

// EncodeShortMACHeader fills the short-MAC prefix (both shape bytes,
// sequence, PAN, dest short, src short) into b and returns SHORTMACLen.
func EncodeShortMACHeader(b []byte, seq uint8, networkID, destShort, srcShort uint16) int {
	b[0] = macFrameID
	b[1] = shortMACFrameCtrl
	b[shortMACSeqOff] = seq
	binary.LittleEndian.PutUint16(b[shortMACPANOff:], networkID)
	binary.LittleEndian.PutUint16(b[shortMACDestOff:], destShort)
	binary.LittleEndian.PutUint16(b[shortMACSrcOff:], srcShort)
	return SHORTMACLen
}

// EncodeLongMACHeader fills the long-MAC prefix (both shape bytes,
// sequence, PAN, dest EUI, src EUI) into b and returns LONGMACLen.
func EncodeLongMACHeader(b []byte, seq uint8, networkID uint16, destEUI, srcEUI [EUILen]byte) int {
	b[0] = macFrameID
	b[1] = longMACFrameCtrl
	b[longMACSeqOff] = seq
	binary.LittleEndian.PutUint16(b[longMACPANOff:], networkID)
	copy(b[longMACDestOff:], destEUI[:])
	copy(b[longMACSrcOff:], srcEUI[:])
	return LONGMACLen
}

// PollPeer is one {short_addr, reply_delay_us} record carried in a
// broadcast POLL payload.
type PollPeer struct {
	ShortAddr    uint16
	ReplyDelayUs uint16
}

// EncodePoll writes a full POLL frame (short-MAC header + kind + count +
// per-peer records) to b and returns the total length.
func EncodePoll(b []byte, seq uint8, networkID, srcShort uint16, peers []PollPeer) (int, error) {
	n := EncodeShortMACHeader(b, seq, networkID, BroadcastShortAddr, srcShort)
	if len(b) < n+2+len(peers)*4 {
		return 0, fmt.Errorf("protocol: buffer too small for POLL with %d peers", len(peers))
	}
	b[n] = byte(MessagePoll)
	n++
	b[n] = uint8(len(peers))
	n++
	for _, p := range peers {
		binary.LittleEndian.PutUint16(b[n:], p.ShortAddr)
		n += 2
		binary.LittleEndian.PutUint16(b[n:], p.ReplyDelayUs)
		n += 2
	}
	return n, nil
}

// DecodePoll parses the payload of a POLL frame (after the kind byte at
// SHORTMACLen) into its per-peer records.
func DecodePoll(frame []byte) ([]PollPeer, error) {
	if len(frame) <= SHORTMACLen {
		return nil, fmt.Errorf("protocol: POLL frame too short")
	}
	body := frame[SHORTMACLen+1:]
	if len(body) < 1 {
		return nil, fmt.Errorf("protocol: POLL frame missing count byte")
	}
	count := int(body[0])
	body = body[1:]
	if len(body) < count*4 {
		return nil, fmt.Errorf("protocol: POLL frame truncated, want %d peers", count)
	}
	peers := make([]PollPeer, count)
	for i := 0; i < count; i++ {
		off := i * 4
		peers[i] = PollPeer{
			ShortAddr:    binary.LittleEndian.Uint16(body[off:]),
			ReplyDelayUs: binary.LittleEndian.Uint16(body[off+2:]),
		}
	}
	return peers, nil
}

// RangePeer is one per-peer timestamp triplet carried in a broadcast RANGE
// payload: the anchor that owns ShortAddr reads its own triplet back out by
// matching short addresses.
type RangePeer struct {
	ShortAddr       uint16
	PollSent        [5]byte
	PollAckReceived [5]byte
	RangeSent       [5]byte
}

const rangePeerWireLen = 2 + 5 + 5 + 5

// EncodeRange writes a full RANGE frame to b and returns the total length.
func EncodeRange(b []byte, seq uint8, networkID, srcShort uint16, peers []RangePeer) (int, error) {
	n := EncodeShortMACHeader(b, seq, networkID, BroadcastShortAddr, srcShort)
	if len(b) < n+2+len(peers)*rangePeerWireLen {
		return 0, fmt.Errorf("protocol: buffer too small for RANGE with %d peers", len(peers))
	}
	b[n] = byte(MessageRange)
	n++
	b[n] = uint8(len(peers))
	n++
	for _, p := range peers {
		binary.LittleEndian.PutUint16(b[n:], p.ShortAddr)
		n += 2
		copy(b[n:], p.PollSent[:])
		n += 5
		copy(b[n:], p.PollAckReceived[:])
		n += 5
		copy(b[n:], p.RangeSent[:])
		n += 5
	}
	return n, nil
}

// DecodeRange parses the payload of a RANGE frame into its per-peer
// timestamp triplets.
func DecodeRange(frame []byte) ([]RangePeer, error) {
	if len(frame) <= SHORTMACLen {
		return nil, fmt.Errorf("protocol: RANGE frame too short")
	}
	body := frame[SHORTMACLen+1:]
	if len(body) < 1 {
		return nil, fmt.Errorf("protocol: RANGE frame missing count byte")
	}
	count := int(body[0])
	body = body[1:]
	if len(body) < count*rangePeerWireLen {
		return nil, fmt.Errorf("protocol: RANGE frame truncated, want %d peers", count)
	}
	peers := make([]RangePeer, count)
	for i := 0; i < count; i++ {
		off := i * rangePeerWireLen
		var p RangePeer
		p.ShortAddr = binary.LittleEndian.Uint16(body[off:])
		copy(p.PollSent[:], body[off+2:off+7])
		copy(p.PollAckReceived[:], body[off+7:off+12])
		copy(p.RangeSent[:], body[off+12:off+17])
		peers[i] = p
	}
	return peers, nil
}

// EncodeRangeReport writes a RANGE_REPORT frame (range + rx power, both
// little-endian float32) to b.
func EncodeRangeReport(b []byte, seq uint8, networkID, destShort, srcShort uint16, rangeM, rxPowerDbm float32) (int, error) {
	n := EncodeShortMACHeader(b, seq, networkID, destShort, srcShort)
	if len(b) < n+1+8 {
		return 0, fmt.Errorf("protocol: buffer too small for RANGE_REPORT")
	}
	b[n] = byte(MessageRangeReport)
	n++
	binary.LittleEndian.PutUint32(b[n:], math.Float32bits(rangeM))
	n += 4
	binary.LittleEndian.PutUint32(b[n:], math.Float32bits(rxPowerDbm))
	n += 4
	return n, nil
}

// DecodeRangeReport parses the payload of a RANGE_REPORT frame.
func DecodeRangeReport(frame []byte) (rangeM, rxPowerDbm float32, err error) {
	if len(frame) < SHORTMACLen+1+8 {
		return 0, 0, fmt.Errorf("protocol: RANGE_REPORT frame too short")
	}
	body := frame[SHORTMACLen+1:]
	rangeM = math.Float32frombits(binary.LittleEndian.Uint32(body))
	rxPowerDbm = math.Float32frombits(binary.LittleEndian.Uint32(body[4:]))
	return rangeM, rxPowerDbm, nil
}

// EncodeSimpleShortMAC writes a short-MAC frame that carries only a kind
// byte and no payload (POLL_ACK, RANGE_FAILED).
func EncodeSimpleShortMAC(b []byte, seq uint8, networkID, destShort, srcShort uint16, kind MessageKind) (int, error) {
	n := EncodeShortMACHeader(b, seq, networkID, destShort, srcShort)
	if len(b) < n+1 {
		return 0, fmt.Errorf("protocol: buffer too small for %s", kind)
	}
	b[n] = byte(kind)
	n++
	return n, nil
}

// EncodeRangingInit writes a long-MAC RANGING_INIT frame (no payload).
func EncodeRangingInit(b []byte, seq uint8, networkID uint16, destEUI, srcEUI [EUILen]byte) (int, error) {
	n := EncodeLongMACHeader(b, seq, networkID, destEUI, srcEUI)
	if len(b) < n+1 {
		return 0, fmt.Errorf("protocol: buffer too small for RANGING_INIT")
	}
	b[n] = byte(MessageRangingInit)
	n++
	return n, nil
}
