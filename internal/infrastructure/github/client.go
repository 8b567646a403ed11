package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

const (
	acceptHeader     = "application/vnd.github+json"
	apiVersionValue  = "2022-11-28"
	defaultBaseURL   = "https://api.github.com"
	requestTimeout   = 30 * time.Second
	maxErrorBodySize = 64 * 1024
)

// APIError is a structured error response from the repository host.
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

// authFailed reports a rejected or under-privileged token
func (e *APIError) authFailed() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client implements port.RemoteRepository against the git data API: one
// commit is assembled remotely from blobs, a tree, and a commit object,
// then the branch ref is advanced without force.
type Client struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	logger     port.Logger
}

// NewClient creates a Client for the given API base URL
func NewClient(baseURL string, auth Authenticator, logger port.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		auth:       auth,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Head resolves the current tip of branch: ref lookup for the commit
// SHA, then the commit object for its tree SHA.
func (c *Client) Head(ctx context.Context, owner, repo, branch string) (*model.BranchHead, error) {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch)
	if err := c.do(ctx, http.MethodGet, path, nil, &ref); err != nil {
		return nil, c.mapRefErr(err, branch)
	}

	var commit struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	path = fmt.Sprintf("/repos/%s/%s/git/commits/%s", owner, repo, ref.Object.SHA)
	if err := c.do(ctx, http.MethodGet, path, nil, &commit); err != nil {
		return nil, c.mapAuthErr(err)
	}

	return &model.BranchHead{
		CommitSHA: ref.Object.SHA,
		TreeSHA:   commit.Tree.SHA,
	}, nil
}

// CreateCommit uploads every file as a blob, builds the tree on top of
// the base tree, and creates the commit object. When the new tree
// equals the base tree there is nothing to commit and no commit object
// is created.
func (c *Client) CreateCommit(ctx context.Context, owner, repo string, commit model.RemoteCommit) (*model.CommitResult, error) {
	type treeEntry struct {
		Path string `json:"path"`
		Mode string `json:"mode"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	}

	entries := make([]treeEntry, 0, len(commit.Files))
	for _, file := range commit.Files {
		var blob struct {
			SHA string `json:"sha"`
		}
		body := map[string]string{
			"content":  base64.StdEncoding.EncodeToString(file.Content),
			"encoding": "base64",
		}
		path := fmt.Sprintf("/repos/%s/%s/git/blobs", owner, repo)
		if err := c.do(ctx, http.MethodPost, path, body, &blob); err != nil {
			return nil, c.mapAuthErr(fmt.Errorf("uploading blob %s: %w", file.Path, err))
		}
		entries = append(entries, treeEntry{
			Path: file.Path,
			Mode: "100644",
			Type: "blob",
			SHA:  blob.SHA,
		})
	}
	c.logger.Debug("uploaded %d blobs to %s/%s", len(entries), owner, repo)

	var tree struct {
		SHA string `json:"sha"`
	}
	treeBody := map[string]interface{}{
		"base_tree": commit.BaseTreeSHA,
		"tree":      entries,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/trees", owner, repo)
	if err := c.do(ctx, http.MethodPost, path, treeBody, &tree); err != nil {
		return nil, c.mapAuthErr(fmt.Errorf("creating tree: %w", err))
	}

	if tree.SHA == commit.BaseTreeSHA {
		return nil, fmt.Errorf("tree matches %s: %w", commit.BaseTreeSHA, model.ErrNothingToCommit)
	}

	var created struct {
		SHA string `json:"sha"`
	}
	commitBody := map[string]interface{}{
		"message": commit.Message,
		"tree":    tree.SHA,
		"parents": []string{commit.ParentSHA},
	}
	path = fmt.Sprintf("/repos/%s/%s/git/commits", owner, repo)
	if err := c.do(ctx, http.MethodPost, path, commitBody, &created); err != nil {
		return nil, c.mapAuthErr(fmt.Errorf("creating commit: %w", err))
	}

	return &model.CommitResult{
		CommitSHA: created.SHA,
		TreeSHA:   tree.SHA,
		Files:     len(commit.Files),
	}, nil
}

// AdvanceBranch moves the branch ref to sha, fast-forward only. A
// non-fast-forward rejection surfaces as PushRejected.
func (c *Client) AdvanceBranch(ctx context.Context, owner, repo, branch, sha string) error {
	body := map[string]interface{}{
		"sha":   sha,
		"force": false,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", owner, repo, branch)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.authFailed():
				return fmt.Errorf("%v: %w", apiErr, model.ErrAuthenticationFailed)
			case apiErr.StatusCode == http.StatusNotFound:
				return fmt.Errorf("branch %s: %w", branch, model.ErrBranchNotFound)
			case apiErr.StatusCode == http.StatusConflict,
				apiErr.StatusCode == http.StatusUnprocessableEntity:
				return fmt.Errorf("%v: %w", apiErr, model.ErrPushRejected)
			}
		}
		return err
	}
	return nil
}

// mapRefErr converts ref lookup failures: a missing ref is a missing
// branch, not a generic 404.
func (c *Client) mapRefErr(err error, branch string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.authFailed():
			return fmt.Errorf("%v: %w", apiErr, model.ErrAuthenticationFailed)
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("branch %s: %w", branch, model.ErrBranchNotFound)
		}
	}
	return err
}

// mapAuthErr converts 401/403 into the taxonomy, everything else is
// passed through.
func (c *Client) mapAuthErr(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.authFailed() {
		return fmt.Errorf("%v: %w", apiErr, model.ErrAuthenticationFailed)
	}
	return err
}

// do performs one API request with auth and standard headers, decoding
// a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("github: encoding request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("github: building request: %v", err)
	}

	header, err := c.auth.AuthorizationHeader(ctx)
	if err != nil {
		return fmt.Errorf("github: authentication: %w", err)
	}
	request.Header.Set("Authorization", header)
	request.Header.Set("Accept", acceptHeader)
	request.Header.Set("X-GitHub-Api-Version", apiVersionValue)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: response.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		var parsed struct {
			Message          string `json:"message"`
			DocumentationURL string `json:"documentation_url"`
		}
		if json.Unmarshal(data, &parsed) == nil {
			apiErr.Message = parsed.Message
			apiErr.DocumentationURL = parsed.DocumentationURL
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return fmt.Errorf("github: decoding response: %v", err)
		}
	}
	return nil
}

// Ensure Client implements port.RemoteRepository
var _ port.RemoteRepository = (*Client)(nil)
