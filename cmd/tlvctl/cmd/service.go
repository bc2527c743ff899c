/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/config"
)

const (
	serviceName = "tlvinfo.service"
	unitPath    = "/etc/systemd/system/" + serviceName

	defaultServiceDataDir = "/var/lib/tlvinfo"
)

func newServiceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the REST API server as a systemd service",
		Long: `Manage 'tlvctl serve' as a systemd service. The unit runs with a
restricted file system view and restarts on failure.`,
		PersistentPreRunE: skipBackend,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install the systemd service",
		Long: `Install the tlvinfo systemd service.

This will:
- Create or reuse the configuration file
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  tlvctl service install
  tlvctl service install --data-dir /var/lib/tlvinfo --user tlvinfo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			configPath, _ := cmd.Flags().GetString("config")
			user, _ := cmd.Flags().GetString("user")
			binary, _ := cmd.Flags().GetString("binary")
			startNow, _ := cmd.Flags().GetBool("start")

			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}
			if dataDir == "" {
				dataDir = defaultServiceDataDir
			}
			if os.Geteuid() != 0 {
				return fmt.Errorf("service install requires root privileges, run with: sudo tlvctl service install")
			}

			var cfg *config.Config
			var err error
			if config.ConfigExists(configPath) {
				cfg, err = config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("data-dir") {
					cfg.Storage.DataDir = dataDir
					if err := config.SaveConfig(cfg, configPath); err != nil {
						return err
					}
				}
			} else {
				cfg, err = config.BootstrapConfig(configPath, dataDir)
				if err != nil {
					return err
				}
				cmd.Printf("Created new configuration at %s\n", configPath)
			}

			unit := renderSystemdUnit(cfg, configPath, user, binary)
			if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
				return fmt.Errorf("failed to write unit file: %w", err)
			}
			if err := runSystemctlCommand("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			if err := runSystemctlCommand("enable", serviceName); err != nil {
				return fmt.Errorf("failed to enable service: %w", err)
			}
			if startNow {
				if err := runSystemctlCommand("start", serviceName); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
			}

			cmd.Printf("Service %s installed\n", serviceName)
			cmd.Printf("Config: %s\n", configPath)
			cmd.Printf("Data: %s\n", cfg.Storage.DataDir)
			cmd.Printf("Port: %d\n", cfg.Server.Port)
			return nil
		},
	}
	installCmd.Flags().String("user", "tlvinfo", "User to run the service as")
	installCmd.Flags().String("binary", "/usr/local/bin/tlvctl", "Path of the installed tlvctl binary")
	installCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show service logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			lines, _ := cmd.Flags().GetInt("lines")
			return runCommand("journalctl", journalArgs(follow, lines)...)
		},
	}
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the systemd service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Geteuid() != 0 {
				return fmt.Errorf("service uninstall requires root privileges")
			}
			// Already stopped is fine.
			_ = runSystemctlCommand("stop", serviceName)
			if err := runSystemctlCommand("disable", serviceName); err != nil {
				cmd.Printf("Warning: could not disable service: %v\n", err)
			}
			if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove unit file: %w", err)
			}
			if err := runSystemctlCommand("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			cmd.Printf("Service %s uninstalled. Configuration and data were kept.\n", serviceName)
			return nil
		},
	}

	serviceCmd.AddCommand(installCmd, uninstallCmd, logsCmd)
	for _, action := range []string{"start", "stop", "restart", "status"} {
		serviceCmd.AddCommand(systemctlCmd(action))
	}
	return serviceCmd
}

func systemctlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Run systemctl %s for the service", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctlCommand(action, serviceName)
		},
	}
}

// renderSystemdUnit returns the unit file for the service.
func renderSystemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=tlvinfo EEPROM API Server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.Storage.DataDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
