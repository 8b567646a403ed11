package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glowlab/studioport/internal/domain/model"
)

var (
	// Publish command flags
	publishMessage string
	publishOwner   string
	publishRepo    string
	publishBranch  string
)

// publishCmd commits staged content to the site repository
var publishCmd = &cobra.Command{
	Use:   "publish [files...]",
	Short: "Publish staged content to the site repository",
	Long: `Stage the given files, then commit everything staged to the site
repository in a single commit. With no files, whatever is already
staged is published. Nothing staged is a clean no-op.
Examples:
  studioport publish
  studioport publish post.md hero.png
  studioport publish -m "weekly roundup" post.md`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		publisher, err := Container.Publisher()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		for _, arg := range args {
			content, err := os.ReadFile(arg)
			if err != nil {
				fmt.Printf("Error: failed to read %s: %v\n", arg, err)
				os.Exit(1)
			}
			target, err := publisher.Stage(filepath.Base(arg), content)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Staged %s -> %s\n", arg, target)
		}

		request := model.PublishRequest{
			Owner:   publishOwner,
			Repo:    publishRepo,
			Branch:  publishBranch,
			Message: publishMessage,
		}
		if err := fillRepoTarget(ctx, &request); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		result, err := publisher.Publish(ctx, request)
		if err != nil {
			if errors.Is(err, model.ErrNothingToCommit) {
				fmt.Println("Nothing to publish, workspace is clean")
				return
			}
			fmt.Printf("Error: %v\n", err)
			if errors.Is(err, model.ErrPushRejected) {
				fmt.Println("The branch moved under us. Staged changes are kept; publish again to retry.")
			}
			os.Exit(1)
		}

		fmt.Printf("Published %d files to %s\n", result.Files, request.Key())
		fmt.Printf("Commit: %s\n", result.CommitSHA)
	},
}

// fillRepoTarget completes owner, repo and branch from the credential
// resolver wherever a flag did not set them.
func fillRepoTarget(ctx context.Context, request *model.PublishRequest) error {
	if request.Owner == "" {
		secret, err := Container.Credentials.Resolve(ctx, model.CredentialRepoOwner)
		if err != nil {
			return err
		}
		request.Owner = secret.Value
	}
	if request.Repo == "" {
		secret, err := Container.Credentials.Resolve(ctx, model.CredentialRepoName)
		if err != nil {
			return err
		}
		request.Repo = secret.Value
	}
	if request.Branch == "" {
		secret, err := Container.Credentials.Resolve(ctx, model.CredentialRepoBranch)
		if err != nil {
			return err
		}
		request.Branch = secret.Value
	}
	return nil
}

func init() {
	RootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishMessage, "message", "m", "", "Commit message (default: generated)")
	publishCmd.Flags().StringVar(&publishOwner, "owner", "", "Repository owner (default: resolved from environment)")
	publishCmd.Flags().StringVar(&publishRepo, "repo", "", "Repository name (default: resolved from environment)")
	publishCmd.Flags().StringVar(&publishBranch, "branch", "", "Branch to publish to (default: resolved from environment)")
}
