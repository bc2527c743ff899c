/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <code> [value]",
		Short: "Set or delete a TLV field and write the device",
		Long: `Read the current device, replace the record for <code> with value and
write the result back with a fresh checksum. Without a value the record is
deleted.

Codes are given in decimal or 0x hex; see 'tlvctl list'. MAC addresses use
the aa:bb:cc:dd:ee:ff form, Manufacture Date uses MM/DD/YYYY hh:mm:ss, and
Vendor Extension takes space separated hex bytes.

Examples:
  tlvctl set 0x23 IP01195230800010
  tlvctl set 0x24 d0:63:b4:00:01:02
  tlvctl set 0x2D`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			code, err := eeprom.ParseCode(args[0])
			if err != nil {
				return err
			}
			if err := e.session.Read(); err != nil {
				return err
			}

			if len(args) == 2 {
				err = e.session.Set(code, args[1])
			} else {
				var deleted bool
				deleted, err = e.session.Unset(code)
				if err == nil && !deleted {
					cmd.Printf("No %s record on device %d\n", code, e.session.Device())
				}
			}
			if errors.Is(err, tlvinfo.ErrInvalidHeader) {
				return fmt.Errorf("%w: device %d holds no TlvInfo data, run 'tlvctl erase -D %d' first",
					err, e.session.Device(), e.session.Device())
			}
			if err != nil {
				return err
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if dryRun {
				return e.session.Show(cmd.OutOrStdout())
			}
			if err := e.session.Write(); err != nil {
				return err
			}
			cmd.Printf("EEPROM data written to device %d.\n", e.session.Device())
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Show the result without writing the device")
	return cmd
}
