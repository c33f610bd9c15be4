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

// Package config holds the tunables for a ranging engine instance and
// loads them from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Role is which side of the ranging exchange an engine instance plays.
type Role string

// Supported roles.
const (
	RoleTag    Role = "tag"
	RoleAnchor Role = "anchor"
)

// Config specifies a ranging engine's run options.
type Config struct {
	Role Role `yaml:"role"`

	SerialDevice string `yaml:"serial_device"`
	SerialBaud   int    `yaml:"serial_baud"`

	MaxPeers           int           `yaml:"max_peers"`
	IntakeQueueSize    int           `yaml:"intake_queue_size"`
	DefaultReplyDelay  time.Duration `yaml:"default_reply_delay"`
	TimerInterval      time.Duration `yaml:"timer_interval"`
	ResetInterval      time.Duration `yaml:"reset_interval"`
	InactivityTimeout  time.Duration `yaml:"inactivity_timeout"`
	ProtocolTimeout    time.Duration `yaml:"protocol_timeout"`
	HardProtocolTimeout time.Duration `yaml:"hard_protocol_timeout"`
	FrameBufLen        int           `yaml:"frame_buf_len"`

	EnableRangeFilter bool `yaml:"enable_range_filter"`
	RangeFilterWindow uint16 `yaml:"range_filter_window"`
	EnableExtensions  bool `yaml:"enable_extensions"`

	NetworkID uint16 `yaml:"network_id"`

	MonitoringPort int `yaml:"monitoring_port"`
}

// DefaultConfig returns Config initialized with the default values from
// the ranging exchange's tuning section.
func DefaultConfig() *Config {
	return &Config{
		Role:                RoleTag,
		SerialBaud:          115200,
		MaxPeers:            4,
		IntakeQueueSize:     10,
		DefaultReplyDelay:   7 * time.Millisecond,
		TimerInterval:       80 * time.Millisecond,
		ResetInterval:       200 * time.Millisecond,
		InactivityTimeout:   1 * time.Second,
		ProtocolTimeout:     1 * time.Second,
		HardProtocolTimeout: 2 * time.Second,
		FrameBufLen:         120,
		EnableRangeFilter:   true,
		RangeFilterWindow:   5,
		EnableExtensions:    false,
		NetworkID:           0xDECA,
		MonitoringPort:      8082,
	}
}

// Validate checks that Config's values are sane.
func (c *Config) Validate() error {
	if c.Role != RoleTag && c.Role != RoleAnchor {
		return fmt.Errorf("role must be either %q or %q", RoleTag, RoleAnchor)
	}
	if c.SerialDevice == "" {
		return fmt.Errorf("serial_device must be specified")
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("max_peers must be greater than zero")
	}
	if c.IntakeQueueSize <= 0 {
		return fmt.Errorf("intake_queue_size must be greater than zero")
	}
	if c.DefaultReplyDelay <= 0 {
		return fmt.Errorf("default_reply_delay must be greater than zero")
	}
	if c.TimerInterval <= 0 {
		return fmt.Errorf("timer_interval must be greater than zero")
	}
	if c.ProtocolTimeout <= 0 || c.ProtocolTimeout >= c.HardProtocolTimeout {
		return fmt.Errorf("protocol_timeout must be greater than zero and less than hard_protocol_timeout")
	}
	if c.FrameBufLen <= 0 || c.FrameBufLen > 127 {
		return fmt.Errorf("frame_buf_len must be between 1 and 127")
	}
	if c.EnableRangeFilter && c.RangeFilterWindow < 2 {
		return fmt.Errorf("range_filter_window must be at least 2 when enable_range_filter is set")
	}
	return nil
}

// ReadConfig reads Config from a YAML file, applying DefaultConfig first so
// the file only has to specify overrides.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
