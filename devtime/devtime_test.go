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

package devtime

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0xFFFFFFFFFF, 0x0102030405, uint64(Modulus - 1)}
	for _, v := range tests {
		t.Run(fmt.Sprintf("v=%d", v), func(t *testing.T) {
			buf := make([]byte, EncodedLen)
			n := Stamp(v).PutBytes(buf)
			require.Equal(t, EncodedLen, n)
			got, err := FromBytes(buf)
			require.NoError(t, err)
			assert.Equal(t, Stamp(v), got)
		})
	}
}

func TestFromBytesShort(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSubWrapSafe(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a := Stamp(rnd.Uint64() & mask)
		b := Stamp(rnd.Uint64() & mask)
		d := a.Sub(b)
		assert.Equal(t, a, b.Add(d))
		assert.True(t, d.Uint64() < Modulus)
	}
}

func TestSubWrapAround(t *testing.T) {
	// a took place just after the counter wrapped, b just before: a - b
	// must still be a small positive duration.
	a := Stamp(10)
	b := Stamp(Modulus - 5)
	d := a.Sub(b)
	assert.Equal(t, Stamp(15), d)
}

func TestMeters(t *testing.T) {
	// one light-nanosecond is ~0.3 m; sanity check the scale is right.
	oneTickSeconds := TickSeconds
	ticksForOneMeter := 1.0 / SpeedOfLightMPS / oneTickSeconds
	got := Stamp(uint64(ticksForOneMeter)).Meters()
	assert.InDelta(t, 1.0, got, 0.01)
}

func TestAddMasksTo40Bits(t *testing.T) {
	got := Stamp(Modulus - 1).Add(Stamp(2))
	assert.Equal(t, Stamp(1), got)
}
