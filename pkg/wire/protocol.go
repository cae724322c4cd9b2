// Package wire encodes benchmark reports for storage and transfer between a
// tinydb bench run and whatever later reads it back (another bench run for
// comparison, a dashboard ingester). MessagePack keeps the format compact
// and language-neutral without hand-rolling a binary layout for something
// that is not on the hot write path.
package wire

import (
	"github.com/vmihailenco/msgpack/v5"
)

// LatencyPercentiles holds the p50/p95/p99 of a latency sample set, in
// nanoseconds.
type LatencyPercentiles struct {
	P50 int64 `msgpack:"p50_ns"`
	P95 int64 `msgpack:"p95_ns"`
	P99 int64 `msgpack:"p99_ns"`
}

// BenchReport summarizes one `tinydb bench` run.
type BenchReport struct {
	Ops        int64              `msgpack:"ops"`
	DurationNS int64              `msgpack:"duration_ns"`
	OpsPerSec  float64            `msgpack:"ops_per_sec"`
	SetLatency LatencyPercentiles `msgpack:"set_latency"`
	GetLatency LatencyPercentiles `msgpack:"get_latency"`
	SyncMode   string             `msgpack:"sync_mode"`
}

// Encode serializes a report to MessagePack bytes.
func Encode(r *BenchReport) ([]byte, error) {
	return msgpack.Marshal(r)
}

// Decode deserializes a report previously written by Encode.
func Decode(data []byte) (*BenchReport, error) {
	var r BenchReport
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
