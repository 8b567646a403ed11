package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glowlab/studioport/internal/domain/model"
)

var (
	// Tunnel command flags
	tunnelDomain string
	tunnelHost   string
	tunnelPort   int
)

// tunnelCmd exposes an already-running local service
var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Expose a running local service",
	Long: `Open a tunnel from the reserved domain to a service that is already
running locally. The service itself is not managed; use "up" to run
both together.
Examples:
  studioport tunnel
  studioport tunnel -p 8501
  studioport tunnel -d wahoo-unified-oyster.example -p 3000`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := Container.Config
		if tunnelDomain != "" {
			cfg.Domain = tunnelDomain
		}
		if tunnelHost != "" {
			cfg.LocalHost = tunnelHost
		}
		if tunnelPort > 0 {
			cfg.LocalPort = tunnelPort
		}

		tunnelConfig := cfg.TunnelConfig()
		if err := tunnelConfig.Validate(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		secret, err := Container.Credentials.Resolve(ctx, model.CredentialTunnelToken)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "=================================================\n")
		fmt.Fprintf(os.Stderr, "Opening tunnel\n")
		fmt.Fprintf(os.Stderr, "  Local:  %s\n", tunnelConfig.LocalAddr())
		fmt.Fprintf(os.Stderr, "  Domain: %s\n", tunnelConfig.Domain)
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n")
		fmt.Fprintf(os.Stderr, "=================================================\n")

		if err := Container.Orchestrator.RunTunnel(ctx, tunnelConfig, secret); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Flags().StringVarP(&tunnelDomain, "domain", "d", "", "Reserved domain to bind (default from config)")
	tunnelCmd.Flags().StringVar(&tunnelHost, "host", "", "Local host the service listens on")
	tunnelCmd.Flags().IntVarP(&tunnelPort, "port", "p", 0, "Local port the service listens on")
}
