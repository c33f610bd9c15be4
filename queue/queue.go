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

// Package queue implements the bounded single-producer/single-consumer
// intake queue that decouples the radio's receive callback (the producer,
// called from the driver's own I/O context) from the engine's service loop
// (the single consumer). The queue never allocates after construction and
// never blocks; a full queue drops the newest frame and reports it to the
// caller so the engine can log and count the drop.
package queue

import (
	"sync"

	"github.com/philfung/uwb-twr/protocol"
)

// DefaultCapacity is the intake queue depth used when a Config does not
// override it.
const DefaultCapacity = 10

// MaxFrameLen is the largest frame the queue will buffer, matching the
// 802.15.4 MTU the protocol package encodes within.
const MaxFrameLen = protocol.MaxFrameLen

// Item is one received frame captured at the moment the radio's on-received
// callback fired.
type Item struct {
	Frame             [MaxFrameLen]byte
	FrameLen          int
	SourceShort       uint16
	Kind              protocol.MessageKind
	RXTimestamp       uint64
	RXPowerDbm        float64
	FirstPathPowerDbm float64
	QualityDbm        float64
	ArrivalMS         int64
	Processed         bool
}

// Meta is the out-of-band data Enqueue tags a frame with; everything the
// radio's on-received callback knows about the frame except its bytes.
type Meta struct {
	SourceShort       uint16
	Kind              protocol.MessageKind
	RXTimestamp       uint64
	RXPowerDbm        float64
	FirstPathPowerDbm float64
	QualityDbm        float64
	ArrivalMS         int64
}

// Queue is a fixed-capacity ring buffer of Items, safe for one producer and
// one consumer calling concurrently without an external lock; the mutex
// here protects the head/count indices and the slots, and Enqueue holds it
// while copying the frame into its slot.
type Queue struct {
	mu       sync.Mutex
	items    []Item
	head     int
	count    int
	dropped  uint64
}

// New creates a Queue with the given capacity. A capacity of zero or less
// falls back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{items: make([]Item, capacity)}
}

// Enqueue copies frame into the next free slot, tagged with meta. It
// returns false without blocking if the queue is full, and bumps the drop
// counter so Dropped() reflects it.
func (q *Queue) Enqueue(frame []byte, meta Meta) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.items) {
		q.dropped++
		return false
	}
	tail := (q.head + q.count) % len(q.items)
	it := &q.items[tail]
	it.FrameLen = copy(it.Frame[:], frame)
	it.SourceShort = meta.SourceShort
	it.Kind = meta.Kind
	it.RXTimestamp = meta.RXTimestamp
	it.RXPowerDbm = meta.RXPowerDbm
	it.FirstPathPowerDbm = meta.FirstPathPowerDbm
	it.QualityDbm = meta.QualityDbm
	it.ArrivalMS = meta.ArrivalMS
	it.Processed = false
	q.count++
	return true
}

// Dequeue removes and returns the oldest item in the queue. The second
// return is false if the queue is empty.
func (q *Queue) Dequeue() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Item{}, false
	}
	it := q.items[q.head]
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return it, true
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int {
	return len(q.items)
}

// Dropped returns the count of frames discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear empties the queue without resetting the drop counter.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = 0
	q.count = 0
}
