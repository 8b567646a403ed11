package port

import (
	"context"

	"github.com/glowlab/studioport/internal/domain/model"
)

// RemoteRepository is the repository host the publisher talks to.
// Implementations map host errors onto the model taxonomy:
// AuthenticationFailed, BranchNotFound, PushRejected, NothingToCommit.
type RemoteRepository interface {
	// Head resolves the current tip of branch
	Head(ctx context.Context, owner, repo, branch string) (*model.BranchHead, error)

	// CreateCommit uploads the change set and builds exactly one commit
	// on top of the parent. Returns NothingToCommit when the resulting
	// tree equals the base tree; no commit object is created then.
	CreateCommit(ctx context.Context, owner, repo string, commit model.RemoteCommit) (*model.CommitResult, error)

	// AdvanceBranch moves the branch ref to sha, fast-forward only
	AdvanceBranch(ctx context.Context, owner, repo, branch, sha string) error
}
