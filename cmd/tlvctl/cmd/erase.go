/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func newEraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Reset the current device to an empty image",
		Long: `Write an empty TlvInfo image holding only a checksum to the current
device.

Example:
  tlvctl erase --device 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if err := e.session.Read(); err != nil {
				return err
			}
			if err := e.session.Erase(); err != nil {
				return err
			}
			if err := e.session.Write(); err != nil {
				return err
			}
			cmd.Printf("EEPROM data on device %d reset.\n", e.session.Device())
			return nil
		},
	}
}
