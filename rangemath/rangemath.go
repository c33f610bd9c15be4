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

// Package rangemath implements the asymmetric two-way ranging time-of-flight
// computation and the optional exponential-moving-average range filter.
package rangemath

import (
	"fmt"

	"github.com/philfung/uwb-twr/devtime"
)

// Timestamps holds the six device-time values an anchor records during one
// POLL -> POLL_ACK -> RANGE exchange with a single peer.
type Timestamps struct {
	PollSent        devtime.Stamp
	PollReceived    devtime.Stamp
	PollAckSent     devtime.Stamp
	PollAckReceived devtime.Stamp
	RangeSent       devtime.Stamp
	RangeReceived   devtime.Stamp
}

// ErrInvalidTOF is returned when the asymmetric TWR denominator is zero or
// the resulting time-of-flight is negative, meaning the exchange produced
// nonsensical timing data (clock glitch, retransmission, corrupted frame).
var ErrInvalidTOF = fmt.Errorf("rangemath: invalid time-of-flight")

// TimeOfFlight computes the asymmetric two-way-ranging time-of-flight, in
// device-time ticks, from the six exchange timestamps. All subtractions are
// wrap-safe (devtime.Stamp.Sub), and all multiplications happen in 64-bit
// integer space to avoid overflow on 40-bit values, per the ranging
// exchange's asymmetric TWR formula.
func TimeOfFlight(ts Timestamps) (float64, error) {
	round1 := int64(ts.PollAckReceived.Sub(ts.PollSent).Uint64())
	reply1 := int64(ts.PollAckSent.Sub(ts.PollReceived).Uint64())
	round2 := int64(ts.RangeReceived.Sub(ts.PollAckSent).Uint64())
	reply2 := int64(ts.RangeSent.Sub(ts.PollAckReceived).Uint64())

	denom := round1 + round2 + reply1 + reply2
	if denom == 0 {
		return 0, ErrInvalidTOF
	}
	numer := round1*round2 - reply1*reply2
	tof := float64(numer) / float64(denom)
	if tof < 0 {
		return 0, ErrInvalidTOF
	}
	return tof, nil
}

// DistanceMeters converts a time-of-flight (in device-time ticks) to a
// one-way distance in meters.
func DistanceMeters(tofTicks float64) float64 {
	return tofTicks * devtime.TickSeconds * devtime.SpeedOfLightMPS
}

// Range runs TimeOfFlight followed by DistanceMeters, the full §4.7
// computation from a peer's raw exchange timestamps to a range in meters.
func Range(ts Timestamps) (float64, error) {
	tof, err := TimeOfFlight(ts)
	if err != nil {
		return 0, err
	}
	return DistanceMeters(tof), nil
}

// EMAFilter is an exponential moving average range filter with tunable
// window N >= 2. The first non-zero measurement seeds the filter state; the
// filter is applied to every measurement after that.
type EMAFilter struct {
	window  uint16
	k       float64
	primed  bool
	current float64
}

// NewEMAFilter creates an EMAFilter over the given window. Window values
// below 2 are clamped to 2, matching the minimum useful smoothing window.
func NewEMAFilter(window uint16) *EMAFilter {
	if window < 2 {
		window = 2
	}
	f := &EMAFilter{window: window}
	f.k = 2.0 / (float64(window) + 1.0)
	return f
}

// SetWindow changes the averaging window and recomputes k. It does not
// reset the filter's current value.
func (f *EMAFilter) SetWindow(window uint16) {
	if window < 2 {
		window = 2
	}
	f.window = window
	f.k = 2.0 / (float64(window) + 1.0)
}

// Apply feeds a new raw measurement through the filter and returns the
// smoothed value. Until the filter is seeded, raw values are returned
// unchanged; the first non-zero value seeds it.
func (f *EMAFilter) Apply(newValue float64) float64 {
	if !f.primed {
		f.current = newValue
		f.primed = newValue != 0
		return f.current
	}
	f.current = newValue*f.k + f.current*(1-f.k)
	return f.current
}

// Reset clears the filter back to its unprimed state.
func (f *EMAFilter) Reset() {
	f.primed = false
	f.current = 0
}
