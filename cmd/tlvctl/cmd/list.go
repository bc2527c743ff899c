/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/eeprom"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "list",
		Short:             "List the understood TLV codes",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipBackend,
		RunE: func(cmd *cobra.Command, args []string) error {
			return eeprom.WriteCodeList(cmd.OutOrStdout())
		},
	}
}
