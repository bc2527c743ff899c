/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Create a configuration file with a freshly generated API key.

An existing file is left alone unless --force is given.

Examples:
  tlvctl init
  tlvctl init --config ./tlvinfo.yaml --data-dir /var/lib/tlvinfo --backend pebble --print-key`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipBackend,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")
			printKey, _ := cmd.Flags().GetBool("print-key")

			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}
			if config.ConfigExists(configPath) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to replace it.\n", configPath)
				return nil
			}

			flags := cmd.Flags()
			cfg, err := config.BootstrapConfig(configPath, dataDir, func(c *config.Config) {
				if flags.Changed("backend") {
					c.Storage.Kind, _ = flags.GetString("backend")
				}
				if flags.Changed("devices") {
					c.Storage.Devices, _ = flags.GetInt("devices")
				}
				if flags.Changed("log-level") {
					c.Logging.Level, _ = flags.GetString("log-level")
				}
			})
			if err != nil {
				return err
			}

			cmd.Printf("Configuration created at %s\n", configPath)
			cmd.Printf("Storage: %s in %s (%d devices)\n", cfg.Storage.Kind, cfg.Storage.DataDir, cfg.Storage.Devices)
			if printKey {
				cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Replace an existing configuration")
	cmd.Flags().Bool("print-key", false, "Print the generated API key")
	return cmd
}
