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

// Command uwbranging brings up a ranging engine as a Tag or an Anchor over
// a serial-attached DW1000 board, and prints live peer status.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/philfung/uwb-twr/config"
)

func main() {
	root := &cobra.Command{
		Use:   "uwbranging",
		Short: "DW1000 two-way-ranging engine",
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied if omitted)")

	root.AddCommand(newTagCmd(&configPath))
	root.AddCommand(newAnchorCmd(&configPath))
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(configPath string, role config.Role) (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		c, err := config.ReadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.DefaultConfig()
	}
	cfg.Role = role
	return cfg, nil
}

func configureLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
