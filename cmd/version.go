package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glowlab/studioport/internal/domain/model"
)

// versionCmd is the command to display version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Long:  `Display studioport version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("studioport v%s\n", model.ClientVersion)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
