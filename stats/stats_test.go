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

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncAccumulates(t *testing.T) {
	c := New()
	c.Inc(CounterRangesComputed, 1)
	c.Inc(CounterRangesComputed, 2)
	assert.Equal(t, int64(3), c.Get(CounterRangesComputed))
}

func TestSetOverwrites(t *testing.T) {
	c := New()
	c.Inc("x", 5)
	c.Set("x", 1)
	assert.Equal(t, int64(1), c.Get("x"))
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.Inc("x", 1)
	snap := c.Snapshot()
	snap["x"] = 99
	assert.Equal(t, int64(1), c.Get("x"))
}

func TestMessageTXRXAndPortStats(t *testing.T) {
	c := New()
	c.MessageTX("POLL")
	c.MessageTX("POLL")
	c.MessageRX("POLL_ACK")

	tx, rx := c.PortStats()
	assert.Equal(t, int64(2), tx["POLL"])
	assert.Equal(t, int64(1), rx["POLL_ACK"])
}

func TestFlattenKey(t *testing.T) {
	assert.Equal(t, "uwbtwr_tx_POLL", flattenKey("uwbtwr.tx.POLL"))
}
