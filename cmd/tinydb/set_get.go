package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cobaltdb/tinydb/pkg/engine"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "durably write a key/value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := engine.Open(flagDataDir, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Set(args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "read the current value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := engine.Open(flagDataDir, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			val, err := db.Get(args[0])
			if err == engine.ErrNotFound {
				fmt.Println("Not found")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Value: %s\n", val)
			return nil
		},
	}
}

func newRecoveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recovery",
		Short: "open the store, running crash recovery, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := engine.Open(flagDataDir, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Println("Recovery complete")
			return nil
		},
	}
}
