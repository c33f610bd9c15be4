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
	"context"
	"encoding/hex"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/philfung/uwb-twr/config"
	"github.com/philfung/uwb-twr/engine"
	"github.com/philfung/uwb-twr/protocol"
	"github.com/philfung/uwb-twr/radio/serialradio"
	"github.com/philfung/uwb-twr/stats"
)

// parseEUI accepts an 8-byte EUI written as 16 hex digits, with or without
// colon separators ("0102030405060708" or "01:02:03:04:05:06:07:08").
func parseEUI(s string) ([protocol.EUILen]byte, error) {
	var eui [protocol.EUILen]byte
	clean := strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return eui, fmt.Errorf("invalid EUI %q: %w", s, err)
	}
	if len(b) != protocol.EUILen {
		return eui, fmt.Errorf("EUI %q must decode to %d bytes, got %d", s, protocol.EUILen, len(b))
	}
	copy(eui[:], b)
	return eui, nil
}

// runEngine brings up a radio driver and engine for the given role, starts
// the Prometheus exporter and service loop, and blocks until ctx is
// cancelled or either goroutine exits with an error. Grounded on
// sptp/client/sptp.go's use of errgroup.Group to run its collaborators
// and tear them down together on first error or signal.
func runEngine(ctx context.Context, cfg *config.Config, eui [protocol.EUILen]byte, role engine.Role, statusFn func(*engine.Engine)) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logEntry := log.NewEntry(log.StandardLogger())

	driver, err := serialradio.Open(cfg.SerialDevice, cfg.SerialBaud, logEntry)
	if err != nil {
		return fmt.Errorf("open radio: %w", err)
	}
	defer driver.Close()

	counters := stats.New()
	shortAddr := protocol.NewShortAddrFromEUI(eui[:])
	e := engine.New(role, cfg, driver, nowMS, counters, logEntry)

	var startErr error
	switch role {
	case engine.RoleTag:
		startErr = e.StartAsTag(eui, shortAddr)
	case engine.RoleAnchor:
		startErr = e.StartAsAnchor(eui, shortAddr)
	}
	if startErr != nil {
		return fmt.Errorf("start engine: %w", startErr)
	}

	g, gctx := errgroup.WithContext(ctx)

	exporter := stats.NewPrometheusExporter(counters, cfg.MonitoringPort)
	exporter.RegisterStatusFn(func() any { return e.AllPeerSnapshots() })
	g.Go(func() error {
		if err := exporter.Start(); err != nil {
			return fmt.Errorf("stats exporter: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		sysStatsTicker := time.NewTicker(5 * time.Second)
		defer sysStatsTicker.Stop()
		statusTicker := time.NewTicker(time.Second)
		defer statusTicker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				e.ServiceOnce(nowMS())
			case <-sysStatsTicker.C:
				if err := e.CollectSysStats(); err != nil {
					logEntry.WithError(err).Warn("uwbtwr: collect sysstats")
				}
			case <-statusTicker.C:
				if statusFn != nil {
					statusFn(e)
				}
			}
		}
	})

	return g.Wait()
}

func nowMS() int64 {
	return time.Now().UnixMilli()
}
