/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the contents of the current device",
		Long: `Read the current device and print its header, every record and the
checksum status.

Example:
  tlvctl show --device 1`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := envFrom(cmd)
	if err != nil {
		return err
	}
	if err := e.session.Read(); err != nil {
		return err
	}
	return e.session.Show(cmd.OutOrStdout())
}
