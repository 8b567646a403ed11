package model

import (
	"fmt"
	"path"
	"strings"
)

// FileChange is one artifact destined for the site repository.
type FileChange struct {
	// Path is the repository-relative target path, forward slashes
	Path string
	// Content is the raw file content
	Content []byte
}

// PublishRequest describes one publish call. All files land in a single
// commit on the target branch; there is no partial outcome. Ephemeral,
// constructed per call.
type PublishRequest struct {
	// Owner is the repository owner
	Owner string
	// Repo is the repository name
	Repo string
	// Branch is the target branch
	Branch string
	// Message is the commit message
	Message string
	// Files are the artifacts to write and commit
	Files []FileChange
}

// Key identifies the serialization unit: publishes to one owner/repo/
// branch run one at a time.
func (r PublishRequest) Key() string {
	return r.Owner + "/" + r.Repo + "@" + r.Branch
}

// Validate checks the request before any file is written. An empty
// Message is allowed; the publisher fills in a default.
func (r PublishRequest) Validate() error {
	if r.Owner == "" || r.Repo == "" {
		return fmt.Errorf("publish request: owner and repo are required")
	}
	if r.Branch == "" {
		return fmt.Errorf("publish request: branch is required")
	}
	for _, f := range r.Files {
		if err := ValidateRepoPath(f.Path); err != nil {
			return fmt.Errorf("publish request: %v", err)
		}
	}
	return nil
}

// ValidateRepoPath rejects paths that could escape the repository root
// or that the tree API would refuse.
func ValidateRepoPath(p string) error {
	if p == "" {
		return fmt.Errorf("empty file path")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("file path %q: backslashes are not allowed", p)
	}
	if path.IsAbs(p) {
		return fmt.Errorf("file path %q: must be repository-relative", p)
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("file path %q: must be in clean form", p)
	}
	for _, part := range strings.Split(clean, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("file path %q: may not traverse outside the repository", p)
		}
	}
	return nil
}

// BranchHead is the current tip of a remote branch.
type BranchHead struct {
	// CommitSHA is the head commit
	CommitSHA string
	// TreeSHA is the tree of the head commit
	TreeSHA string
}

// RemoteCommit is the input for building one commit on the remote: a
// tree derived from BaseTreeSHA plus Files, committed with Message on
// top of ParentSHA.
type RemoteCommit struct {
	Message     string
	ParentSHA   string
	BaseTreeSHA string
	Files       []FileChange
}

// CommitResult reports the commit created by a publish.
type CommitResult struct {
	// CommitSHA is the created commit
	CommitSHA string
	// TreeSHA is the tree of the created commit
	TreeSHA string
	// Branch is the branch the ref was advanced on
	Branch string
	// Files is the number of file changes in the commit
	Files int
}

// StagedFile is one artifact waiting in the workspace.
type StagedFile struct {
	// Path is the repository-relative target path
	Path string
	// Size is the content size in bytes
	Size int64
}

// RepositoryState reports the staging workspace: dirty means artifacts
// are staged but not yet committed to the remote.
type RepositoryState struct {
	Dirty  bool
	Staged []StagedFile
}
