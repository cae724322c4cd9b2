// Package bench drives synchronous load against an engine.Engine and
// reports throughput and latency percentiles.
package bench

import (
	"fmt"
	"sort"
	"time"

	"github.com/cobaltdb/tinydb/pkg/engine"
)

// Config parameterizes a run.
type Config struct {
	Dir       string
	Ops       int
	KeyPrefix string
	ValueSize int
	SyncMode  engine.SyncMode
	// Progress, if set, is called every 1000 completed ops.
	Progress func(done, total int)
}

// Percentiles holds the p50/p95/p99 of a sorted latency sample, as
// time.Duration values.
type Percentiles struct {
	P50, P95, P99 time.Duration
}

// Result is the outcome of one Run.
type Result struct {
	Ops         int
	ValueSize   int
	Duration    time.Duration
	SetLatency  Percentiles
	OpsPerSec   float64
}

// Run opens an engine at cfg.Dir, performs cfg.Ops sequential Set calls with
// a cfg.ValueSize payload, and returns throughput/latency statistics. It
// reports progress every 1000 ops via cfg.Progress, if set.
func Run(cfg Config) (*Result, error) {
	e, err := engine.Open(cfg.Dir, &engine.Options{SyncMode: cfg.SyncMode})
	if err != nil {
		return nil, fmt.Errorf("bench: open engine: %w", err)
	}
	defer e.Close()

	val := make([]byte, cfg.ValueSize)
	for i := range val {
		val[i] = 'x'
	}

	latencies := make([]time.Duration, cfg.Ops)
	start := time.Now()
	for i := 0; i < cfg.Ops; i++ {
		key := fmt.Sprintf("%s%08d", cfg.KeyPrefix, i)
		opStart := time.Now()
		if err := e.Set(key, val); err != nil {
			return nil, fmt.Errorf("bench: set %q: %w", key, err)
		}
		latencies[i] = time.Since(opStart)

		if cfg.Progress != nil && (i+1)%1000 == 0 {
			cfg.Progress(i+1, cfg.Ops)
		}
	}
	total := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return &Result{
		Ops:        cfg.Ops,
		ValueSize:  cfg.ValueSize,
		Duration:   total,
		SetLatency: percentilesOf(latencies),
		OpsPerSec:  float64(cfg.Ops) / total.Seconds(),
	}, nil
}

func percentilesOf(sorted []time.Duration) Percentiles {
	if len(sorted) == 0 {
		return Percentiles{}
	}
	return Percentiles{
		P50: sorted[len(sorted)*50/100],
		P95: sorted[len(sorted)*95/100],
		P99: sorted[clampIndex(len(sorted)*99/100, len(sorted))],
	}
}

func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}
