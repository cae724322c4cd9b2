package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cobaltdb/tinydb/internal/bench"
	"github.com/cobaltdb/tinydb/pkg/engine"
	"github.com/cobaltdb/tinydb/pkg/wire"
)

func newBenchCmd() *cobra.Command {
	var (
		ops       int
		keyPrefix string
		valSize   int
		reportOut string
		syncOff   bool
	)

	cmd := &cobra.Command{
		Use:   "bench [ops] [key-prefix] [value-size]",
		Short: "run a synchronous write benchmark and report throughput/latency",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("bench: invalid ops %q: %w", args[0], err)
				}
				ops = n
			}
			if len(args) > 1 {
				keyPrefix = args[1]
			}
			if len(args) > 2 {
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("bench: invalid value size %q: %w", args[2], err)
				}
				valSize = n
			}

			mode := engine.SyncFull
			modeName := "full"
			if syncOff {
				mode = engine.SyncOff
				modeName = "off"
			}

			result, err := bench.Run(bench.Config{
				Dir:       flagDataDir,
				Ops:       ops,
				KeyPrefix: keyPrefix,
				ValueSize: valSize,
				SyncMode:  mode,
				Progress: func(done, total int) {
					fmt.Fprintf(os.Stderr, "progress: %d/%d\n", done, total)
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("ops: %d\n", result.Ops)
			fmt.Printf("value size: %d bytes\n", result.ValueSize)
			fmt.Printf("p50 (set): %v\n", result.SetLatency.P50)
			fmt.Printf("p95 (set): %v\n", result.SetLatency.P95)
			fmt.Printf("p99 (set): %v\n", result.SetLatency.P99)
			fmt.Printf("throughput (ops/sec): %.1f\n", result.OpsPerSec)
			fmt.Println("bench done")

			if reportOut != "" {
				report := &wire.BenchReport{
					Ops:        int64(result.Ops),
					DurationNS: result.Duration.Nanoseconds(),
					OpsPerSec:  result.OpsPerSec,
					SetLatency: wire.LatencyPercentiles{
						P50: result.SetLatency.P50.Nanoseconds(),
						P95: result.SetLatency.P95.Nanoseconds(),
						P99: result.SetLatency.P99.Nanoseconds(),
					},
					SyncMode: modeName,
				}
				data, err := wire.Encode(report)
				if err != nil {
					return fmt.Errorf("bench: encode report: %w", err)
				}
				if err := os.WriteFile(reportOut, data, 0644); err != nil {
					return fmt.Errorf("bench: write report: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&ops, "ops", 10000, "number of Set operations to perform")
	cmd.Flags().StringVar(&keyPrefix, "key-prefix", "k", "prefix for generated keys")
	cmd.Flags().IntVar(&valSize, "value-size", 100, "size in bytes of the generated value")
	cmd.Flags().StringVar(&reportOut, "report", "", "write a msgpack-encoded BenchReport to this path")
	cmd.Flags().BoolVar(&syncOff, "no-page-sync", false, "skip the post-write page fsync (WAL fsync is never skipped)")

	return cmd
}
