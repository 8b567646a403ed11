package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Discard command flags
	discardYes bool
)

// discardCmd drops staged content without publishing it
var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard all staged content",
	Long: `Remove every staged file from the workspace without publishing.
This is the only way staged content is dropped; publishing failures
never discard anything on their own.
Examples:
  studioport discard
  studioport discard --yes`,
	Run: func(cmd *cobra.Command, args []string) {
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
			fmt.Println("Workspace is clean, nothing to discard")
			return
		}

		fmt.Printf("Staged files (%d):\n", len(state.Staged))
		for _, staged := range state.Staged {
			fmt.Printf("  %s (%d bytes)\n", staged.Path, staged.Size)
		}

		if !discardYes {
			fmt.Printf("Discard %d staged files? [y/N]: ", len(state.Staged))
			reader := bufio.NewReader(os.Stdin)
			answer, err := reader.ReadString('\n')
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted")
				return
			}
		}

		if err := publisher.ClearChanges(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Discarded %d staged files\n", len(state.Staged))
	},
}

func init() {
	RootCmd.AddCommand(discardCmd)

	discardCmd.Flags().BoolVarP(&discardYes, "yes", "y", false, "Skip the confirmation prompt")
}
