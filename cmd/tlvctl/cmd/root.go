/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/config"
	"github.com/ssargent/tlvinfo/pkg/di"
	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/logging"
	"github.com/ssargent/tlvinfo/pkg/storage"
)

var container *di.Container

// SetContainer injects the dependency container.
func SetContainer(c *di.Container) {
	container = c
}

type envKey struct{}

// env is what a command needs once the backend is open.
type env struct {
	cfg     *config.Config
	backend storage.Backend
	session *eeprom.Session
	log     zerolog.Logger
}

func envFrom(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok {
		return nil, errors.New("backend not initialised")
	}
	return e, nil
}

// skipBackend replaces the root pre-run for commands that never touch a
// device.
func skipBackend(cmd *cobra.Command, args []string) error {
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tlvctl",
		Short: "Inspect and program TlvInfo EEPROMs",
		Long: `tlvctl reads, edits and writes the TlvInfo identity EEPROM format used
by ONIE compatible boards: a signed header followed by type-length-value
records and a trailing CRC-32.

Run without a subcommand to display the current device.`,
		SilenceUsage:       true,
		PersistentPreRunE:  openEnv,
		PersistentPostRunE: closeEnv,
		RunE:               runShow,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: ~/.config/tlvinfo/config.yaml)")
	flags.StringP("data-dir", "d", "", "Data directory for device images")
	flags.String("backend", "", "Storage backend: file, pebble, bolt or memory")
	flags.Int("devices", 0, "Number of device slots")
	flags.IntP("device", "D", 0, "Current device")
	flags.String("log-level", "", "Log level (also "+logging.EnvLogLevel+")")

	rootCmd.AddCommand(
		newShowCmd(),
		newSetCmd(),
		newEraseCmd(),
		newListCmd(),
		newDevCmd(),
		newDumpCmd(),
		newFDTFileCmd(),
		newSnapshotsCmd(),
		newShellCmd(),
		newServeCmd(),
		newInitCmd(),
		newServiceCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadSettings merges the config file, if any, with explicit flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if flags.Changed("data-dir") {
		cfg.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("backend") {
		cfg.Storage.Kind, _ = flags.GetString("backend")
	}
	if flags.Changed("devices") {
		cfg.Storage.Devices, _ = flags.GetInt("devices")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openEnv(cmd *cobra.Command, args []string) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{
		App:   "tlvctl",
		Level: cfg.Logging.Level,
		Out:   cmd.ErrOrStderr(),
	})

	backend, err := container.OpenBackend(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Storage.Kind, err)
	}
	session := eeprom.NewSession(backend, eeprom.WithLogger(log))
	dev, _ := cmd.Flags().GetInt("device")
	if err := session.SelectDevice(dev); err != nil {
		_ = backend.Close()
		return err
	}

	log.Debug().
		Str("backend", cfg.Storage.Kind).
		Str("data_dir", cfg.Storage.DataDir).
		Int("device", dev).
		Msg("backend opened")
	cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{
		cfg:     cfg,
		backend: backend,
		session: session,
		log:     log,
	}))
	return nil
}

func closeEnv(cmd *cobra.Command, args []string) error {
	e, err := envFrom(cmd)
	if err != nil {
		return nil
	}
	return e.backend.Close()
}
