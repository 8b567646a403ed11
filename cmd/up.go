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
	// Up command flags
	upDomain  string
	upHost    string
	upPort    int
	upCommand string
	upWorkDir string
)

// upCmd runs the studio service and the tunnel as one unit
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run the studio and expose it",
	Long: `Start the local studio service, wait for it to come up, then open
a tunnel from the reserved domain to it. Both are torn down together
on interrupt, tunnel first.
Examples:
  studioport up
  studioport up --command "streamlit run studio.py" --port 8501
  studioport up -d wahoo-unified-oyster.example`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := Container.Config
		if upDomain != "" {
			cfg.Domain = upDomain
		}
		if upHost != "" {
			cfg.LocalHost = upHost
		}
		if upPort > 0 {
			cfg.LocalPort = upPort
		}
		if upCommand != "" {
			cfg.ServiceCommand = upCommand
		}
		if upWorkDir != "" {
			cfg.ServiceWorkDir = upWorkDir
		}

		tunnelConfig := cfg.TunnelConfig()
		if err := tunnelConfig.Validate(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		spec := cfg.ServiceSpec()
		if err := spec.Validate(); err != nil {
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
		fmt.Fprintf(os.Stderr, "Starting studio\n")
		fmt.Fprintf(os.Stderr, "  Command: %s\n", spec.Command)
		fmt.Fprintf(os.Stderr, "  Local:   %s\n", tunnelConfig.LocalAddr())
		fmt.Fprintf(os.Stderr, "  Domain:  %s\n", tunnelConfig.Domain)
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n")
		fmt.Fprintf(os.Stderr, "=================================================\n")

		if err := Container.Orchestrator.RunCombined(ctx, spec, tunnelConfig, secret); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(upCmd)

	upCmd.Flags().StringVarP(&upDomain, "domain", "d", "", "Reserved domain to bind (default from config)")
	upCmd.Flags().StringVar(&upHost, "host", "", "Local host the studio listens on")
	upCmd.Flags().IntVarP(&upPort, "port", "p", 0, "Local port the studio listens on")
	upCmd.Flags().StringVar(&upCommand, "command", "", "Command that starts the studio service")
	upCmd.Flags().StringVar(&upWorkDir, "workdir", "", "Working directory for the studio service")
}
