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

package engine

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// sysStatsPrefix namespaces the host/process counters folded into the
// engine's Counters alongside the protocol counters, the way a combined
// stats server blends process health with application metrics.
const sysStatsPrefix = "uwbtwr.sysstats."

// procStartTime anchors the process.uptime counter; computed once at
// import time rather than per call.
var procStartTime = time.Now()

// CollectSysStats gathers process CPU/memory/goroutine counters and
// writes them into the engine's Counters under the sysstats prefix. It is
// not part of the per-millisecond service loop; a host calls it on a
// slower cadence (seconds, not milliseconds) from its own monitoring
// ticker, the way a combined protocol+host stats server periodically
// folds in runtime health alongside ranging counters.
func (e *Engine) CollectSysStats() error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	e.counters.Set(sysStatsPrefix+"process.uptime", int64(time.Since(procStartTime).Seconds()))

	if pct, err := proc.Percent(0); err == nil {
		e.counters.Set(sysStatsPrefix+"process.cpu_pct_x100", int64(pct*100))
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		e.counters.Set(sysStatsPrefix+"process.rss", int64(mem.RSS))
		e.counters.Set(sysStatsPrefix+"process.vms", int64(mem.VMS))
	}
	if threads, err := proc.NumThreads(); err == nil {
		e.counters.Set(sysStatsPrefix+"process.num_threads", int64(threads))
	}

	e.counters.Set(sysStatsPrefix+"runtime.goroutines", int64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	e.counters.Set(sysStatsPrefix+"runtime.mem.heap_alloc", int64(m.HeapAlloc))
	e.counters.Set(sysStatsPrefix+"runtime.mem.heap_inuse", int64(m.HeapInuse))
	e.counters.Set(sysStatsPrefix+"runtime.gc.count", int64(m.NumGC))
	return nil
}
