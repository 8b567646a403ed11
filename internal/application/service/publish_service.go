package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// PublishService commits staged studio content to the remote
// repository. A publish is all-or-nothing: every staged file lands in
// a single commit on the configured branch, or nothing moves at all.
// Publishes against the same repository and branch are serialized.
//
// The remote is built lazily on the first Publish, so staging and
// discarding never ask for repository credentials.
type PublishService struct {
	newRemote  func(ctx context.Context) (port.RemoteRepository, error)
	workspace  port.Workspace
	logger     port.Logger
	contentDir string
	assetDir   string

	mutex    sync.Mutex
	remote   port.RemoteRepository
	branches map[string]*sync.Mutex
}

// NewPublishService creates a publisher. contentDir and assetDir are
// the repository paths markdown and image artifacts are routed into.
func NewPublishService(newRemote func(ctx context.Context) (port.RemoteRepository, error), workspace port.Workspace, logger port.Logger, contentDir, assetDir string) *PublishService {
	return &PublishService{
		newRemote:  newRemote,
		workspace:  workspace,
		logger:     logger,
		contentDir: contentDir,
		assetDir:   assetDir,
		branches:   make(map[string]*sync.Mutex),
	}
}

// Stage writes one artifact into the workspace and returns the
// repository path it was routed to. Nothing touches the remote until
// Publish is called.
func (s *PublishService) Stage(name string, content []byte) (string, error) {
	target := s.route(name)
	if err := s.workspace.Write(target, content); err != nil {
		return "", fmt.Errorf("failed to stage %s: %v", target, err)
	}
	s.logger.Info("Staged %s (%d bytes)", target, len(content))
	return target, nil
}

// Publish folds request.Files into the workspace and commits every
// staged change in one commit on request.Branch. The workspace is
// cleared only after the branch has moved; a rejected push leaves it
// intact so the next publish retries the same content.
func (s *PublishService) Publish(ctx context.Context, request model.PublishRequest) (*model.CommitResult, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	lock := s.branchLock(request.Key())
	lock.Lock()
	defer lock.Unlock()

	for _, file := range request.Files {
		if err := s.workspace.Write(file.Path, file.Content); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %v", file.Path, err)
		}
	}

	changes, err := s.workspace.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to collect staged changes: %v", err)
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("no staged changes for %s: %w", request.Key(), model.ErrNothingToCommit)
	}

	remote, err := s.remoteRepo(ctx)
	if err != nil {
		return nil, err
	}

	head, err := remote.Head(ctx, request.Owner, request.Repo, request.Branch)
	if err != nil {
		return nil, err
	}

	message := request.Message
	if message == "" {
		message = fmt.Sprintf("Publish %d files", len(changes))
	}

	result, err := remote.CreateCommit(ctx, request.Owner, request.Repo, model.RemoteCommit{
		Message:     message,
		ParentSHA:   head.CommitSHA,
		BaseTreeSHA: head.TreeSHA,
		Files:       changes,
	})
	if err != nil {
		return nil, err
	}

	if err := remote.AdvanceBranch(ctx, request.Owner, request.Repo, request.Branch, result.CommitSHA); err != nil {
		return nil, err
	}

	result.Branch = request.Branch
	result.Files = len(changes)

	// Committed content is no longer pending
	if err := s.workspace.Clear(); err != nil {
		s.logger.Warn("Publish succeeded but clearing the workspace failed: %v", err)
	}

	s.logger.Info("Published %d files to %s (%s)", len(changes), request.Key(), shortSHA(result.CommitSHA))
	return result, nil
}

// ClearChanges drops every staged change without publishing. This is
// the only way staged content is discarded.
func (s *PublishService) ClearChanges() error {
	state, err := s.workspace.State()
	if err != nil {
		return fmt.Errorf("failed to inspect workspace: %v", err)
	}
	if err := s.workspace.Clear(); err != nil {
		return fmt.Errorf("failed to clear staged changes: %v", err)
	}
	s.logger.Info("Discarded %d staged files", len(state.Staged))
	return nil
}

// State reports what is currently staged
func (s *PublishService) State() (model.RepositoryState, error) {
	return s.workspace.State()
}

// route maps an artifact name to its repository path. Markdown goes
// under the content directory, images under the asset directory,
// anything else lands at the repository root.
func (s *PublishService) route(name string) string {
	clean := sanitizeName(name)
	switch strings.ToLower(path.Ext(clean)) {
	case ".md", ".markdown":
		return path.Join(s.contentDir, clean)
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return path.Join(s.assetDir, clean)
	default:
		return clean
	}
}

func (s *PublishService) branchLock(key string) *sync.Mutex {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	lock, exists := s.branches[key]
	if !exists {
		lock = &sync.Mutex{}
		s.branches[key] = lock
	}
	return lock
}

// remoteRepo builds the remote client on first use and caches it.
// Construction may prompt for credentials, so it runs outside the
// service mutex.
func (s *PublishService) remoteRepo(ctx context.Context) (port.RemoteRepository, error) {
	s.mutex.Lock()
	remote := s.remote
	s.mutex.Unlock()
	if remote != nil {
		return remote, nil
	}

	built, err := s.newRemote(ctx)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.remote == nil {
		s.remote = built
	}
	return s.remote, nil
}

// sanitizeName normalizes an artifact name into a safe file name:
// lowercase, spaces to hyphens, anything outside [a-z0-9._-] dropped.
func sanitizeName(name string) string {
	base := path.Base(strings.ToLower(strings.TrimSpace(name)))
	base = strings.ReplaceAll(base, " ", "-")
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	clean := b.String()
	for strings.Contains(clean, "--") {
		clean = strings.ReplaceAll(clean, "--", "-")
	}
	return clean
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
