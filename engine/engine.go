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

// Package engine implements the per-peer ranging protocol engine: the
// Tag/Anchor sub-state machines, the emission scheduler, and the public
// API a host application drives. The engine owns the peer table and the
// intake queue and is the only thing that ever mutates a peer.Record; the
// radio driver's own callbacks touch only the intake queue and the
// pending-TX fan-out state (see pendingTX below), never a peer.Record.
package engine

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/philfung/uwb-twr/config"
	"github.com/philfung/uwb-twr/peer"
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/queue"
	"github.com/philfung/uwb-twr/radio"
	"github.com/philfung/uwb-twr/rangemath"
	"github.com/philfung/uwb-twr/stats"
)

// Protocol-error codes for callbacks that have no specific peer or whose
// cause isn't a received message kind. A code >= 0 is a raw MessageKind
// value received when not expected (matching the wire value, e.g. 255 for
// RANGE_FAILED, per the reference exchange's error taxonomy).
const (
	ErrCodeProtocolTimeout = -1
	ErrCodeQueueOverflow   = -2
	ErrCodePeerTableFull   = -3
)

// Role is which side of the ranging exchange an Engine plays.
type Role int

// Supported roles.
const (
	RoleTag Role = iota
	RoleAnchor
)

// Callbacks is the set of optional, non-blocking handlers a host registers
// to observe engine activity. A nil handler is simply not invoked.
type Callbacks struct {
	NewRange       func()
	BlinkPeer      func(p *peer.Record)
	NewPeer        func(p *peer.Record)
	InactivePeer   func(p *peer.Record)
	RangeComplete  func(p *peer.Record)
	ProtocolError  func(p *peer.Record, code int)
}

// pendingTX pairs up transmit requests issued from the service context
// with their completion timestamps reported later from the radio driver's
// own callback context. The service context pushes an expectation every
// time it calls Transmit/TransmitDelayed; the radio's OnSent callback pops
// the oldest expectation (driver transmits complete in FIFO order) and
// records its device-time stamp for the service context to fan out to
// every peer the broadcast addressed, not just one.
type pendingTX struct {
	mu        sync.Mutex
	expected  []pendingTXEntry
	completed []pendingTXEntry
}

type pendingTXEntry struct {
	kind        protocol.MessageKind
	deviceTime  uint64
	targetAddrs []uint16 // empty means "all current peers"
}

func (p *pendingTX) expect(e pendingTXEntry) {
	p.mu.Lock()
	p.expected = append(p.expected, e)
	p.mu.Unlock()
}

func (p *pendingTX) complete(deviceTime uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.expected) == 0 {
		return
	}
	e := p.expected[0]
	p.expected = p.expected[1:]
	e.deviceTime = deviceTime
	p.completed = append(p.completed, e)
}

func (p *pendingTX) drainCompleted() []pendingTXEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.completed) == 0 {
		return nil
	}
	out := p.completed
	p.completed = nil
	return out
}

// Engine is the per-peer ranging protocol engine for one role (Tag or
// Anchor). It is not safe for concurrent use of its own methods from
// multiple goroutines; ServiceOnce must be called from a single service
// goroutine. The radio driver's OnSent/OnReceived callbacks may run on a
// different goroutine; they touch the intake queue, the pendingTX buffer,
// the clock and the counters, and on intake overflow the ProtocolError
// callback.
type Engine struct {
	role   Role
	cfg    *config.Config
	driver radio.Driver
	table  *peer.Table
	intake *queue.Queue
	clock  func() int64
	log    *log.Entry
	counters *stats.Counters

	eui       [protocol.EUILen]byte
	shortAddr uint16
	seq       uint8

	callbacks Callbacks

	replyDelayUs      uint16
	resetPeriodMS     int64
	enableRangeFilter bool
	rangeFilterWindow uint16
	rangeFilters      map[uint16]*rangemath.EMAFilter

	lastGlobalActivityMS int64
	lastEmitMS            int64
	blinkCounter          int
	frameBuf              []byte

	pendingTX pendingTX

	lastPeerShortAddr uint16
}

// New creates an Engine for the given role. clock must return a
// monotonically non-decreasing milliseconds-since-boot value; it is called
// from the service context and from the radio's receive callback, which
// stamps each frame's arrival time with it.
func New(role Role, cfg *config.Config, driver radio.Driver, clock func() int64, counters *stats.Counters, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if counters == nil {
		counters = stats.New()
	}
	e := &Engine{
		role:              role,
		cfg:               cfg,
		driver:            driver,
		table:             peer.NewTable(cfg.MaxPeers),
		intake:            queue.New(cfg.IntakeQueueSize),
		clock:             clock,
		log:               logger,
		counters:          counters,
		replyDelayUs:      uint16(cfg.DefaultReplyDelay.Microseconds()),
		resetPeriodMS:     cfg.ResetInterval.Milliseconds(),
		enableRangeFilter: cfg.EnableRangeFilter,
		rangeFilterWindow: cfg.RangeFilterWindow,
		rangeFilters:      make(map[uint16]*rangemath.EMAFilter),
		frameBuf:          make([]byte, cfg.FrameBufLen),
	}
	return e
}

// StartAsTag brings the engine up in the Tag role: programs the EUI and
// short address, registers the radio callbacks, and arms the receiver.
func (e *Engine) StartAsTag(eui [protocol.EUILen]byte, shortAddr uint16) error {
	e.role = RoleTag
	return e.start(eui, shortAddr)
}

// StartAsAnchor brings the engine up in the Anchor role.
func (e *Engine) StartAsAnchor(eui [protocol.EUILen]byte, shortAddr uint16) error {
	e.role = RoleAnchor
	return e.start(eui, shortAddr)
}

func (e *Engine) start(eui [protocol.EUILen]byte, shortAddr uint16) error {
	e.eui = eui
	e.shortAddr = shortAddr

	if err := e.driver.Init(); err != nil {
		return fmt.Errorf("engine: radio init: %w", err)
	}
	if err := e.driver.SetEUI(eui); err != nil {
		return fmt.Errorf("engine: radio set eui: %w", err)
	}
	e.driver.OnReceived(e.onReceived)
	e.driver.OnSent(e.onSent)
	if err := e.driver.StartRXContinuous(); err != nil {
		return fmt.Errorf("engine: radio start rx: %w", err)
	}
	e.lastGlobalActivityMS = e.clock()
	return nil
}

// SetCallbacks registers every callback at once, replacing the whole set;
// the On* methods below set one callback each.
func (e *Engine) SetCallbacks(cb Callbacks) { e.callbacks = cb }

// OnNewRange registers the legacy no-argument range-available callback.
func (e *Engine) OnNewRange(fn func()) { e.callbacks.NewRange = fn }

// OnBlinkPeer registers the callback fired when an Anchor discovers a new
// Tag via BLINK.
func (e *Engine) OnBlinkPeer(fn func(p *peer.Record)) { e.callbacks.BlinkPeer = fn }

// OnNewPeer registers the callback fired when a Tag discovers a new Anchor
// via RANGING_INIT.
func (e *Engine) OnNewPeer(fn func(p *peer.Record)) { e.callbacks.NewPeer = fn }

// OnInactivePeer registers the callback fired when a peer is pruned for
// inactivity.
func (e *Engine) OnInactivePeer(fn func(p *peer.Record)) { e.callbacks.InactivePeer = fn }

// OnRangeComplete registers the callback fired once per completed
// POLL->POLL_ACK->RANGE->RANGE_REPORT exchange.
func (e *Engine) OnRangeComplete(fn func(p *peer.Record)) { e.callbacks.RangeComplete = fn }

// OnProtocolError registers the callback fired for every protocol-level
// error; peer is nil for errors with no peer context (queue overflow,
// table full).
func (e *Engine) OnProtocolError(fn func(p *peer.Record, code int)) { e.callbacks.ProtocolError = fn }

// PeerCount returns the number of peers currently in the table.
func (e *Engine) PeerCount() int { return e.table.Len() }

// FindPeer returns the peer with the given short address, or nil.
func (e *Engine) FindPeer(shortAddr uint16) *peer.Record { return e.table.FindByShortAddr(shortAddr) }

// GetLastPeer returns the most recently active peer, or nil if the table
// is empty.
func (e *Engine) GetLastPeer() *peer.Record {
	if e.table.Len() == 0 {
		return nil
	}
	if p := e.table.FindByShortAddr(e.lastPeerShortAddr); p != nil {
		return p
	}
	return e.table.At(e.table.Len() - 1)
}

// SetReplyDelayUs changes the base per-peer reply delay used when staggering
// broadcast POLLs.
func (e *Engine) SetReplyDelayUs(us uint16) { e.replyDelayUs = us }

// SetResetPeriodMs changes the global-inactivity reset period.
func (e *Engine) SetResetPeriodMs(ms uint32) { e.resetPeriodMS = int64(ms) }

// EnableRangeFilter toggles the EMA range filter.
func (e *Engine) EnableRangeFilter(enabled bool) { e.enableRangeFilter = enabled }

// SetRangeFilterWindow changes the EMA filter window; values below 2 are
// clamped to 2 by rangemath.EMAFilter itself.
func (e *Engine) SetRangeFilterWindow(window uint16) {
	e.rangeFilterWindow = window
	for _, f := range e.rangeFilters {
		f.SetWindow(window)
	}
}

func (e *Engine) nextSeq() uint8 {
	e.seq++
	return e.seq
}

func (e *Engine) emitNewPeer(p *peer.Record) {
	if e.callbacks.NewPeer != nil {
		e.callbacks.NewPeer(p)
	}
}

func (e *Engine) emitBlinkPeer(p *peer.Record) {
	if e.callbacks.BlinkPeer != nil {
		e.callbacks.BlinkPeer(p)
	}
}

func (e *Engine) emitRangeComplete(p *peer.Record) {
	if e.callbacks.RangeComplete != nil {
		e.callbacks.RangeComplete(p)
	}
}

func (e *Engine) emitNewRange() {
	if e.callbacks.NewRange != nil {
		e.callbacks.NewRange()
	}
}

func (e *Engine) emitInactivePeer(p *peer.Record) {
	if e.callbacks.InactivePeer != nil {
		e.callbacks.InactivePeer(p)
	}
}

func (e *Engine) emitProtocolError(p *peer.Record, code int) {
	e.counters.Inc(stats.CounterProtocolTimeout, boolToInt64(code == ErrCodeProtocolTimeout))
	if e.callbacks.ProtocolError != nil {
		e.callbacks.ProtocolError(p, code)
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (e *Engine) rangeFilterFor(shortAddr uint16) *rangemath.EMAFilter {
	f, ok := e.rangeFilters[shortAddr]
	if !ok {
		f = rangemath.NewEMAFilter(e.rangeFilterWindow)
		e.rangeFilters[shortAddr] = f
	}
	return f
}
