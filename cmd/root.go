package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glowlab/studioport/internal/di"
)

var (
	// Container is the dependency injection container
	Container *di.Container

	// ConfigPath is the path to the configuration file
	ConfigPath string

	// LogLevel overrides the configured logging level
	LogLevel string

	// RootCmd is the root command for CLI
	RootCmd = &cobra.Command{
		Use:   "studioport",
		Short: "Studioport - publish and expose your local studio",
		Long: `Studioport runs a local studio service, exposes it on a reserved
domain through the glowlab relay, and publishes finished content to a
site repository.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Container = di.NewContainer()

			if err := Container.Initialize(ConfigPath); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}

			if LogLevel != "" {
				Container.Logger.SetLevel(LogLevel)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if Container != nil {
				Container.Close()
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Path to configuration file (default: ~/.studioport/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Override logging level (debug, info, warn, error)")
}
