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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philfung/uwb-twr/config"
	"github.com/philfung/uwb-twr/engine"
)

func newTagCmd(configPath *string) *cobra.Command {
	var euiStr, serialDevice string

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Run as a ranging Tag, discovering and polling Anchors",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging()
			cfg, err := loadConfig(*configPath, config.RoleTag)
			if err != nil {
				return err
			}
			if serialDevice != "" {
				cfg.SerialDevice = serialDevice
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			eui, err := parseEUI(euiStr)
			if err != nil {
				return err
			}
			return runEngine(cmd.Context(), cfg, eui, engine.RoleTag, printStatus)
		},
	}

	cmd.Flags().StringVar(&euiStr, "eui", "", "this device's 8-byte EUI, hex (required)")
	cmd.Flags().StringVar(&serialDevice, "serial", "", "serial device path, overrides config")
	cmd.MarkFlagRequired("eui")

	return cmd
}
