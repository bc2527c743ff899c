/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ssargent/tlvinfo/pkg/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the tlvinfo REST API server. Requests must carry the configured
API key in the X-API-Key header; Prometheus metrics are served unauthenticated
on /metrics.

Examples:
  tlvctl serve
  tlvctl serve --port 9000 --api-key mysecretkey --backend pebble`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}

			serverConfig := api.ServerConfig{
				Port:   e.cfg.Server.Port,
				Bind:   e.cfg.Server.Bind,
				APIKey: e.cfg.Server.APIKey,
			}
			if cmd.Flags().Changed("port") {
				serverConfig.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				serverConfig.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				serverConfig.APIKey, _ = cmd.Flags().GetString("api-key")
			}
			if serverConfig.APIKey == "" || serverConfig.APIKey == "auto" {
				return errors.New("an API key is required: run 'tlvctl init' or pass --api-key")
			}

			server := api.NewServer(e.session, e.backend, serverConfig, api.NewMetrics(), e.log)
			return server.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().String("api-key", "", "API key for authentication")
	return cmd
}
