package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cobaltdb/tinydb/internal/hexdump"
	"github.com/cobaltdb/tinydb/pkg/storage"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <page|wal> [id]",
		Short: "hex-dump a raw page or the wal for inspection",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "page":
				return dumpPage(args)
			case "wal":
				return dumpWAL()
			default:
				return fmt.Errorf("dump: unknown target %q, expected page or wal", args[0])
			}
		},
	}
	return cmd
}

func dumpPage(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("dump page requires a page id")
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("dump: invalid page id %q: %w", args[1], err)
	}

	backend, err := storage.OpenDisk(filepath.Join(flagDataDir, "tinydb_data.db"))
	if err != nil {
		return err
	}
	defer backend.Close()

	buf := make([]byte, storage.PageSize)
	n, err := backend.ReadAt(buf, int64(id)*int64(storage.PageSize))
	if err != nil {
		return err
	}
	fmt.Printf("page %d, %d bytes read:\n", id, n)
	fmt.Print(hexdump.Dump(buf[:n], 0))
	return nil
}

func dumpWAL() error {
	count := 0
	err := storage.Replay(filepath.Join(flagDataDir, "tinydb_wal.log"), func(lsn uint64, payload []byte) error {
		fmt.Printf("lsn %d, %d byte payload:\n", lsn, len(payload))
		fmt.Print(hexdump.Dump(payload, 64))
		count++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d records\n", count)
	return nil
}
