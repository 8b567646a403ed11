package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// statusCmd shows the configured targets and the staged workspace
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and staged content",
	Long:  `Display the active relay and publish targets and what is staged.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := Container.Config

		fmt.Println("Studioport status:")
		fmt.Printf("Relay: %s:%d (tls=%v)\n", cfg.ServerAddress, cfg.ControlPort, cfg.TLSEnabled)
		if cfg.Domain != "" {
			fmt.Printf("Domain: %s\n", cfg.Domain)
		} else {
			fmt.Println("Domain: (not configured)")
		}
		fmt.Printf("Local service: %s\n", cfg.TunnelConfig().LocalAddr())
		if cfg.ServiceCommand != "" {
			fmt.Printf("Service command: %s\n", cfg.ServiceCommand)
		}
		fmt.Printf("Publish API: %s (%s auth)\n", cfg.APIBaseURL, cfg.PublishAuth)
		fmt.Printf("Staging: %s\n", cfg.StagingDir)

		publisher, err := Container.Publisher()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		state, err := publisher.State()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if !state.Dirty {
			fmt.Println("Workspace: clean")
			return
		}
		fmt.Printf("Workspace: %d staged files\n", len(state.Staged))
		for _, staged := range state.Staged {
			fmt.Printf("  %s (%d bytes)\n", staged.Path, staged.Size)
		}
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
