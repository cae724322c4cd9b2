// Command tinydb is the CLI front end for the tinydb storage engine:
// point sets/gets, a recovery-only open, a self-check, a throughput
// benchmark, and raw page/WAL hex dumps for debugging corruption.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagDataDir string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tinydb",
		Short: "tinydb is a crash-safe embedded key-value store",
	}

	defaultDir := "./tinydb_data"
	if dir := os.Getenv("TINYDB_DATA_DIR"); dir != "" {
		defaultDir = dir
	}
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", defaultDir, "directory holding the data and wal files")

	root.AddCommand(
		newSetCmd(),
		newGetCmd(),
		newRecoveryCmd(),
		newRunTestsCmd(),
		newBenchCmd(),
		newDumpCmd(),
	)
	return root
}
