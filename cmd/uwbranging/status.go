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
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/philfung/uwb-twr/engine"
	"github.com/philfung/uwb-twr/peer"
)

// printStatus renders the engine's current peer table, colored by
// sub-state the way ptpcheck colors port state: FAILED in red, an active
// exchange in yellow, IDLE in green.
func printStatus(e *engine.Engine) {
	renderPeerTable(e.AllPeerSnapshots())
}

// renderPeerTable is the shared rendering path for both the live per-second
// status line printed by a running tag/anchor and the standalone `status`
// subcommand, which fetches the same []engine.PeerSnapshot shape over HTTP
// from a running instance's exporter.
func renderPeerTable(snapshots []engine.PeerSnapshot) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{
		"short addr", "ext addr", "state", "range(m)", "rx power(dBm)", "quality(dBm)",
	})
	for _, snap := range snapshots {
		state := snap.SubState.String()
		switch snap.SubState {
		case peer.StateFailed:
			state = color.RedString(state)
		case peer.StateIdle:
			state = color.GreenString(state)
		default:
			state = color.YellowString(state)
		}
		table.Append([]string{
			fmt.Sprintf("%04x", snap.ShortAddr),
			fmt.Sprintf("%x", snap.ExtAddr),
			state,
			fmt.Sprintf("%.3f", snap.LastRangeM),
			fmt.Sprintf("%.1f", snap.LastRXPowerDbm),
			fmt.Sprintf("%.1f", snap.LastQualityDbm),
		})
	}
	table.Render()
}
