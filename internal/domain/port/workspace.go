package port

import "github.com/glowlab/studioport/internal/domain/model"

// Workspace is the local staging area for artifacts awaiting publish.
// Artifacts written here are the uncommitted local changes of the
// repository state; only a successful publish or an explicit clear
// empties it.
type Workspace interface {
	// Write stores content at the repository-relative path, atomically
	Write(path string, content []byte) error

	// Changes returns the full staged change set, paths sorted
	Changes() ([]model.FileChange, error)

	// State reports whether the workspace is dirty and what is staged
	State() (model.RepositoryState, error)

	// Clear removes every staged artifact. Destructive.
	Clear() error
}
