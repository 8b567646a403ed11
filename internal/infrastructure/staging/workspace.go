package staging

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// tmpPrefix marks in-flight writes so walks never pick them up as
// staged artifacts.
const tmpPrefix = ".staging-"

// Workspace stores artifacts awaiting publish under a root directory,
// mirroring their repository-relative paths. The workspace is the local
// working tree of the publish flow: non-empty means dirty.
type Workspace struct {
	root string
}

// NewWorkspace creates the workspace root if needed
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("staging: root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("staging: creating root: %v", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory
func (w *Workspace) Root() string {
	return w.root
}

// Write stores content at the repository-relative path. The write is
// atomic: content lands in a temp file first and is renamed into place,
// so a crash never leaves a half-written artifact.
func (w *Workspace) Write(repoPath string, content []byte) error {
	if err := model.ValidateRepoPath(repoPath); err != nil {
		return fmt.Errorf("staging: %v", err)
	}

	target := filepath.Join(w.root, filepath.FromSlash(repoPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("staging: creating directory for %s: %v", repoPath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("staging: creating temp file for %s: %v", repoPath, err)
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("staging: writing %s: %v", repoPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("staging: syncing %s: %v", repoPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("staging: closing %s: %v", repoPath, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("staging: placing %s: %v", repoPath, err)
	}
	return nil
}

// Changes returns the full staged change set with contents, paths
// sorted for deterministic commits.
func (w *Workspace) Changes() ([]model.FileChange, error) {
	var changes []model.FileChange

	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		changes = append(changes, model.FileChange{
			Path:    filepath.ToSlash(rel),
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("staging: listing changes: %v", err)
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes, nil
}

// State reports the workspace without loading file contents
func (w *Workspace) State() (model.RepositoryState, error) {
	var staged []model.StagedFile

	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		staged = append(staged, model.StagedFile{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return model.RepositoryState{}, fmt.Errorf("staging: reading state: %v", err)
	}

	sort.Slice(staged, func(i, j int) bool {
		return staged[i].Path < staged[j].Path
	})
	return model.RepositoryState{
		Dirty:  len(staged) > 0,
		Staged: staged,
	}, nil
}

// Clear removes every staged artifact. Destructive and irreversible.
func (w *Workspace) Clear() error {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("staging: clearing: %v", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			return fmt.Errorf("staging: clearing %s: %v", entry.Name(), err)
		}
	}
	return nil
}

// Ensure Workspace implements port.Workspace
var _ port.Workspace = (*Workspace)(nil)
