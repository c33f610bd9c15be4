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

package rangemath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philfung/uwb-twr/devtime"
)

// ticksFor converts a desired one-way distance in meters to the device-time
// ticks a DW1000-equivalent radio would report for that distance, to build
// a synthetic but physically consistent exchange for tests.
func ticksFor(meters float64) uint64 {
	return uint64(meters / devtime.SpeedOfLightMPS / devtime.TickSeconds)
}

func buildExchange(distanceM float64, replyDelayTicks uint64) Timestamps {
	tof := ticksFor(distanceM)
	pollSent := devtime.Stamp(1000)
	pollReceived := pollSent.Add(devtime.Stamp(tof))
	pollAckSent := pollReceived.Add(devtime.Stamp(replyDelayTicks))
	pollAckReceived := pollAckSent.Add(devtime.Stamp(tof))
	rangeSent := pollAckReceived.Add(devtime.Stamp(replyDelayTicks))
	rangeReceived := rangeSent.Add(devtime.Stamp(tof))
	return Timestamps{
		PollSent:        pollSent,
		PollReceived:    pollReceived,
		PollAckSent:     pollAckSent,
		PollAckReceived: pollAckReceived,
		RangeSent:       rangeSent,
		RangeReceived:   rangeReceived,
	}
}

func TestRangeHappyPath(t *testing.T) {
	ts := buildExchange(2.5, 7000*1000) // reply delay much bigger than tof, like real hardware
	got, err := Range(ts)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 0.10)
}

func TestRangeZeroDenominatorIsInvalid(t *testing.T) {
	ts := Timestamps{}
	_, err := Range(ts)
	require.ErrorIs(t, err, ErrInvalidTOF)
}

func TestRangeNegativeTOFIsInvalid(t *testing.T) {
	// construct timestamps where round*round is smaller than reply*reply,
	// producing a negative numerator/denominator combination.
	ts := Timestamps{
		PollSent:        0,
		PollAckReceived: 10,
		PollReceived:    0,
		PollAckSent:     1000,
		RangeReceived:   1010,
		RangeSent:       2000,
	}
	_, err := Range(ts)
	require.Error(t, err)
}

func TestEMAFilterSeedsOnFirstSample(t *testing.T) {
	f := NewEMAFilter(5)
	got := f.Apply(2.5)
	assert.Equal(t, 2.5, got)
}

func TestEMAFilterSmooths(t *testing.T) {
	f := NewEMAFilter(5)
	f.Apply(2.0)
	got := f.Apply(3.0)
	k := 2.0 / 6.0
	want := 3.0*k + 2.0*(1-k)
	assert.InDelta(t, want, got, 1e-9)
}

func TestEMAFilterWindowClampedToTwo(t *testing.T) {
	f := NewEMAFilter(1)
	assert.Equal(t, uint16(2), f.window)
}

func TestEMAFilterReset(t *testing.T) {
	f := NewEMAFilter(3)
	f.Apply(5.0)
	f.Reset()
	got := f.Apply(10.0)
	assert.Equal(t, 10.0, got)
}
