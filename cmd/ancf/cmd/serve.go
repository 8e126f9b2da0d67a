/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/api"
	"github.com/kmorran/ancf/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [container]",
	Short: "Serve a container over HTTP",
	Long: `Serve read-only HTTP access to one container: header and index
inspection plus block and byte-range reads. Settings come from the
config file when one exists, overridden by flags.

Examples:
  ancf serve metrics.ancf --port=8080
  ancf serve --config=~/.config/ancf/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		port, _ := cmd.Flags().GetInt("port")
		bind, _ := cmd.Flags().GetString("bind")
		apiKey, _ := cmd.Flags().GetString("api-key")

		cfg := config.DefaultConfig()
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		// Flags and the positional argument override the file.
		if len(args) > 0 {
			cfg.DataFile = args[0]
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind = bind
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Security.APIKey = apiKey
		}

		serverConfig := api.ServerConfig{
			Port: cfg.Port,
			Bind: cfg.Bind,
		}
		// "auto" means a key was never provisioned; serve unauthenticated.
		if cfg.Security.APIKey != "" && cfg.Security.APIKey != "auto" {
			serverConfig.APIKey = cfg.Security.APIKey
		}

		return api.StartServer(cfg.DataFile, serverConfig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", "", "Path to the config file")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serveCmd.Flags().String("api-key", "", "Require this X-API-Key on API routes")
}
