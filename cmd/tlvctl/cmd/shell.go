/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/eeprom"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Edit EEPROM data interactively",
		Long: `Start an interactive session that keeps one image in memory. Changes
reach the device only on 'write'.

` + eeprom.Usage,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			return runShell(cmd, e.session)
		},
	}
}

func runShell(cmd *cobra.Command, session *eeprom.Session) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("tlv> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "quit", "exit":
			return nil
		case "help":
			cmd.Print(eeprom.Usage)
			continue
		}
		if err := session.Exec(out, eeprom.SplitCommand(line)); err != nil {
			cmd.Printf("Error: %v\n", err)
		}
	}
}
