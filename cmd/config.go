package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configCmd is the command to manage configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage studioport configuration.`,
}

// configShowCmd is the command to display configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration",
	Long:  `Display studioport configuration. Credentials are not configuration and never appear here.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := Container.Config

		fmt.Println("Studioport configuration:")
		fmt.Printf("Server Address: %s\n", cfg.ServerAddress)
		fmt.Printf("Control Port: %d\n", cfg.ControlPort)
		fmt.Printf("TLS Enabled: %v\n", cfg.TLSEnabled)
		fmt.Printf("Domain: %s\n", cfg.Domain)
		fmt.Printf("Local Host: %s\n", cfg.LocalHost)
		fmt.Printf("Local Port: %d\n", cfg.LocalPort)
		fmt.Printf("Service Command: %s\n", cfg.ServiceCommand)
		fmt.Printf("Service Workdir: %s\n", cfg.ServiceWorkDir)
		fmt.Printf("Ready Timeout: %s\n", cfg.ReadyTimeout)
		fmt.Printf("Grace Delay: %s\n", cfg.GraceDelay)
		fmt.Printf("Stop Timeout: %s\n", cfg.StopTimeout)
		fmt.Printf("API Base URL: %s\n", cfg.APIBaseURL)
		fmt.Printf("Publish Auth: %s\n", cfg.PublishAuth)
		if cfg.PublishAuth == "app" {
			fmt.Printf("App ID: %d\n", cfg.AppID)
			fmt.Printf("Installation ID: %d\n", cfg.InstallationID)
			fmt.Printf("Private Key Path: %s\n", cfg.PrivateKeyPath)
		}
		fmt.Printf("Content Dir: %s\n", cfg.ContentDir)
		fmt.Printf("Asset Dir: %s\n", cfg.AssetDir)
		fmt.Printf("Staging Dir: %s\n", cfg.StagingDir)
		fmt.Printf("Log Level: %s\n", cfg.LogLevel)
		fmt.Printf("Log File: %s\n", cfg.LogFile)
	},
}

// configSetCmd is the command to set configuration
var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set configuration",
	Long: `Set one studioport configuration value and save the file.
Examples:
  studioport config set domain wahoo-unified-oyster.example
  studioport config set local_port 8501
  studioport config set service_command "streamlit run studio.py"
  studioport config set log_level debug`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		if err := Container.ConfigService.Set(Container.Config, key, value); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if err := Container.ConfigService.SaveConfig(Container.Config, ConfigPath); err != nil {
			fmt.Printf("Error: Failed to save configuration: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Configuration %s set to %s\n", key, value)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
