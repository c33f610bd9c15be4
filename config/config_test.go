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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValidOnceSerialDeviceSet(t *testing.T) {
	c := DefaultConfig()
	c.SerialDevice = "/dev/ttyACM0"
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsBadRole(t *testing.T) {
	c := DefaultConfig()
	c.SerialDevice = "/dev/ttyACM0"
	c.Role = "gateway"
	assert.Error(t, c.Validate())
}

func TestValidateRejectsProtocolTimeoutOrdering(t *testing.T) {
	c := DefaultConfig()
	c.SerialDevice = "/dev/ttyACM0"
	c.ProtocolTimeout = c.HardProtocolTimeout
	assert.Error(t, c.Validate())
}

func TestReadConfigAppliesOverridesOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "role: anchor\nserial_device: /dev/ttyUSB0\nmax_peers: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	c, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, RoleAnchor, c.Role)
	assert.Equal(t, "/dev/ttyUSB0", c.SerialDevice)
	assert.Equal(t, 2, c.MaxPeers)
	// untouched fields keep their defaults
	assert.Equal(t, 10, c.IntakeQueueSize)
}
