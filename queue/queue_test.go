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

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philfung/uwb-twr/protocol"
)

func meta(source uint16, kind protocol.MessageKind, arrivalMS int64) Meta {
	return Meta{SourceShort: source, Kind: kind, ArrivalMS: arrivalMS}
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New(2)
	require.True(t, q.Enqueue([]byte{1, 2, 3}, meta(0x0101, protocol.MessagePoll, 100)))
	require.True(t, q.Enqueue([]byte{4, 5}, meta(0x0202, protocol.MessagePollAck, 200)))

	it, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, uint16(0x0101), it.SourceShort)
	assert.Equal(t, []byte{1, 2, 3}, it.Frame[:it.FrameLen])

	it, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, uint16(0x0202), it.SourceShort)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestEnqueueOverflowDropsAndCounts(t *testing.T) {
	q := New(1)
	require.True(t, q.Enqueue([]byte{1}, meta(0x0101, protocol.MessagePoll, 100)))
	ok := q.Enqueue([]byte{2}, meta(0x0202, protocol.MessagePoll, 200))
	assert.False(t, ok)
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 1, q.Len())
}

func TestDefaultCapacity(t *testing.T) {
	q := New(0)
	assert.Equal(t, DefaultCapacity, q.Cap())
}

func TestClearDoesNotResetDropCounter(t *testing.T) {
	q := New(1)
	q.Enqueue([]byte{1}, meta(0x0101, protocol.MessagePoll, 100))
	q.Enqueue([]byte{2}, meta(0x0202, protocol.MessagePoll, 200))
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueWrapsAroundRingBuffer(t *testing.T) {
	q := New(2)
	q.Enqueue([]byte{1}, meta(1, protocol.MessagePoll, 1))
	q.Dequeue()
	q.Enqueue([]byte{2}, meta(2, protocol.MessagePoll, 2))
	q.Enqueue([]byte{3}, meta(3, protocol.MessagePoll, 3))
	assert.Equal(t, 2, q.Len())

	it, _ := q.Dequeue()
	assert.Equal(t, uint16(2), it.SourceShort)
	it, _ = q.Dequeue()
	assert.Equal(t, uint16(3), it.SourceShort)
}

func TestEnqueueCarriesDiagnostics(t *testing.T) {
	q := New(1)
	m := Meta{
		SourceShort:       0x0101,
		Kind:              protocol.MessagePoll,
		RXTimestamp:       12345,
		RXPowerDbm:        -70.5,
		FirstPathPowerDbm: -72.1,
		QualityDbm:        3.2,
		ArrivalMS:         100,
	}
	require.True(t, q.Enqueue([]byte{1}, m))
	it, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, m.RXTimestamp, it.RXTimestamp)
	assert.Equal(t, m.RXPowerDbm, it.RXPowerDbm)
	assert.Equal(t, m.FirstPathPowerDbm, it.FirstPathPowerDbm)
	assert.Equal(t, m.QualityDbm, it.QualityDbm)
}
