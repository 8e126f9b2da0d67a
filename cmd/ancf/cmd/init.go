package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with a generated API key",
	Long: `Create the gateway config file, generating a fresh API key. An
existing config is never overwritten.

Example:
  ancf init --data-file=/var/lib/ancf/metrics.ancf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataFile, _ := cmd.Flags().GetString("data-file")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) {
			return fmt.Errorf("config already exists: %s", configPath)
		}

		cfg, err := config.BootstrapConfig(configPath, dataFile)
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", configPath)
		fmt.Printf("API key: %s\n", cfg.Security.APIKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("config", "", "Path to write the config file")
	initCmd.Flags().String("data-file", "", "Container the serve command exposes")
}
