/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/board"
)

func newFDTFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fdtfile",
		Short: "Print the device tree file for this board",
		Long: `Read the Part Number from every device and print the device tree file
the bootloader should load, for example marvell/cn9130-cf-pro.dtb.

With --sku the given Part Number is decoded instead of the devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sku, _ := cmd.Flags().GetString("sku"); sku != "" {
				fmt.Fprintln(cmd.OutOrStdout(), board.FDTFile(sku))
				return nil
			}
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), board.Identify(e.backend, e.log).FDTFile())
			return nil
		},
	}
	cmd.Flags().String("sku", "", "Decode this Part Number instead of reading the devices")
	return cmd
}
