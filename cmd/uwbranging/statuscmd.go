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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/philfung/uwb-twr/engine"
)

// newStatusCmd is the read-only companion to `tag`/`anchor`: it queries a
// locally or remotely running instance's exporter for its current peer
// table instead of opening the radio itself, the way ptpcheck's status
// subcommands query a running ptp4l rather than starting their own.
func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the peer table of a running tag or anchor",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://%s/status", addr))
			if err != nil {
				return fmt.Errorf("fetch status from %s: %w", addr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch status from %s: unexpected status %s", addr, resp.Status)
			}
			var snapshots []engine.PeerSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
				return fmt.Errorf("decode status from %s: %w", addr, err)
			}
			renderPeerTable(snapshots)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8082", "host:port of a running tag's or anchor's exporter")

	return cmd
}
