package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "inspect and maintain the local store",
}

var storeGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "force a snapshot and archive the superseded write-ahead log",
	Args:  cobra.NoArgs,
	RunE:  handleStoreGC,
}

// snapshotter is satisfied by store.FileStore; MemStore has no WAL to
// compact so it is simply not a valid target for this command.
type snapshotter interface {
	Snapshot() error
}

func handleStoreGC(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	sn, ok := c.Store().(snapshotter)
	if !ok {
		return fmt.Errorf("mdclient: configured store does not support gc")
	}
	if err := sn.Snapshot(); err != nil {
		return fmt.Errorf("mdclient: gc: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "snapshot written, WAL archived")
	return nil
}

func init() {
	storeCmd.AddCommand(storeGCCmd)
}

// RegisterStore wires the store command tree onto root.
func RegisterStore(root *cobra.Command) { root.AddCommand(storeCmd) }
