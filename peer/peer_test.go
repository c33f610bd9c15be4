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

package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philfung/uwb-twr/protocol"
)

var testEUI = [protocol.EUILen]byte{0x7D, 0x00, 0x22, 0xEA, 0x82, 0x60, 0x3B, 0x9C}

func TestNewRecordStartsIdle(t *testing.T) {
	r := NewRecord(0x7D00, testEUI, 0, 1000)
	assert.Equal(t, StateIdle, r.SubState)
	assert.Equal(t, protocol.MessagePoll, r.ExpectedNext)
	assert.False(t, r.ProtocolFailed)
	assert.False(t, r.SentAck())
	assert.False(t, r.ReceivedAck())
}

func TestResetProtocolStateIsIdempotent(t *testing.T) {
	r := NewRecord(0x7D00, testEUI, 0, 1000)
	r.SubState = StateRangeSent
	r.ProtocolFailed = true
	r.SetSentAck(true)
	r.ResetProtocolState(2000)
	assert.Equal(t, StateIdle, r.SubState)
	assert.False(t, r.ProtocolFailed)
	assert.False(t, r.SentAck())

	r.ResetProtocolState(2000)
	assert.Equal(t, StateIdle, r.SubState)
}

func TestNoteProtocolActivityNeverGoesBackwards(t *testing.T) {
	r := NewRecord(0x7D00, testEUI, 0, 1000)
	r.NoteProtocolActivity(5000)
	r.NoteProtocolActivity(1000)
	assert.Equal(t, int64(5000), r.LastProtocolActivityMS)
}

func TestIsProtocolTimedOut(t *testing.T) {
	r := NewRecord(0x7D00, testEUI, 0, 1000)
	assert.False(t, r.IsProtocolTimedOut(1500, 1000))
	assert.True(t, r.IsProtocolTimedOut(3000, 1000))
}

func TestIsProtocolActive(t *testing.T) {
	r := NewRecord(0x7D00, testEUI, 0, 1000)
	assert.False(t, r.IsProtocolActive())
	r.SubState = StatePollSent
	assert.True(t, r.IsProtocolActive())
	r.SubState = StateFailed
	assert.False(t, r.IsProtocolActive())
}

func TestTableAddFindRemove(t *testing.T) {
	tbl := NewTable(2)
	r1, err := tbl.Add(0x0101, testEUI, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, r1.Index)

	r2, err := tbl.Add(0x0202, testEUI, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, r2.Index)

	_, err = tbl.Add(0x0303, testEUI, 1000)
	require.ErrorIs(t, err, ErrTableFull)

	_, err = tbl.Add(0x0101, testEUI, 1000)
	require.ErrorIs(t, err, ErrDuplicatePeer)

	assert.Same(t, r2, tbl.FindByShortAddr(0x0202))

	tbl.Remove(0x0101)
	assert.Nil(t, tbl.FindByShortAddr(0x0101))
	assert.Equal(t, 0, tbl.FindByShortAddr(0x0202).Index)
	assert.Equal(t, 1, tbl.Len())
}

func TestTableDefaultCapacity(t *testing.T) {
	tbl := NewTable(0)
	assert.Equal(t, DefaultMaxPeers, tbl.Cap())
}

func TestTableClearResetsToZero(t *testing.T) {
	tbl := NewTable(4)
	_, _ = tbl.Add(0x0101, testEUI, 1000)
	_, _ = tbl.Add(0x0202, testEUI, 1000)
	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	r, err := tbl.Add(0x0101, testEUI, 2000)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Index)
}

func TestTablePruneInactive(t *testing.T) {
	tbl := NewTable(4)
	_, _ = tbl.Add(0x0101, testEUI, 1000)
	_, _ = tbl.Add(0x0202, testEUI, 9000)

	removed := tbl.PruneInactive(10000, 5000)
	require.Equal(t, []uint16{0x0101}, removed)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 0, tbl.FindByShortAddr(0x0202).Index)
}
