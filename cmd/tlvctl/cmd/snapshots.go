/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/storage"
)

func newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored copies of the current device",
		Long: `List the images kept for the current device. Only the pebble backend
keeps a copy of every write.

Examples:
  tlvctl --backend pebble snapshots
  tlvctl --backend pebble snapshots restore 2Z4mQ0bGQwG7Jx3k9zLwE1q3r5T`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, snap, err := snapshotEnv(cmd)
			if err != nil {
				return err
			}
			list, err := snap.Snapshots(e.session.Device())
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %4d bytes\n", s.ID, s.ID.Time().UTC().Format(time.RFC3339), s.Size)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Copy a stored image back onto the current device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
			}
			e, snap, err := snapshotEnv(cmd)
			if err != nil {
				return err
			}
			if err := snap.Restore(e.session.Device(), id); err != nil {
				return err
			}
			cmd.Printf("Restored snapshot %s to device %d.\n", id, e.session.Device())
			return nil
		},
	})
	return cmd
}

func snapshotEnv(cmd *cobra.Command) (*env, storage.Snapshotter, error) {
	e, err := envFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	snap, ok := e.backend.(storage.Snapshotter)
	if !ok {
		return nil, nil, fmt.Errorf("the %s backend does not keep snapshots", e.cfg.Storage.Kind)
	}
	return e, snap, nil
}
