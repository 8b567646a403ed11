package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
	"github.com/glowlab/studioport/internal/infrastructure/staging"
)

type publishFixture struct {
	service     *PublishService
	remote      *fakeRemote
	remoteCalls *int32
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()
	ws, err := staging.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	remote := &fakeRemote{}
	var calls int32
	newRemote := func(ctx context.Context) (port.RemoteRepository, error) {
		atomic.AddInt32(&calls, 1)
		return remote, nil
	}

	return &publishFixture{
		service:     NewPublishService(newRemote, ws, nopLogger{}, "content/posts", "assets/images"),
		remote:      remote,
		remoteCalls: &calls,
	}
}

func testPublishRequest() model.PublishRequest {
	return model.PublishRequest{
		Owner:  "glowlab",
		Repo:   "studio-site",
		Branch: "main",
	}
}

func TestStageRoutesByExtension(t *testing.T) {
	fx := newPublishFixture(t)

	cases := []struct {
		name string
		want string
	}{
		{"first-post.md", "content/posts/first-post.md"},
		{"notes.markdown", "content/posts/notes.markdown"},
		{"chart.png", "assets/images/chart.png"},
		{"photo.JPEG", "assets/images/photo.jpeg"},
		{"robots.txt", "robots.txt"},
	}
	for _, tc := range cases {
		target, err := fx.service.Stage(tc.name, []byte("body"))
		require.NoError(t, err)
		assert.Equal(t, tc.want, target)
	}

	state, err := fx.service.State()
	require.NoError(t, err)
	assert.True(t, state.Dirty)
	assert.Len(t, state.Staged, len(cases))
	assert.Equal(t, int32(0), atomic.LoadInt32(fx.remoteCalls), "staging never touches the remote")
}

func TestStageSanitizesNames(t *testing.T) {
	fx := newPublishFixture(t)

	target, err := fx.service.Stage("  My First Post.MD ", []byte("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "content/posts/my-first-post.md", target)

	target, err = fx.service.Stage("weird//name..png", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "assets/images/name..png", target)
}

func TestPublishNothingStaged(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Publish(context.Background(), testPublishRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNothingToCommit))
	assert.Equal(t, int32(0), atomic.LoadInt32(fx.remoteCalls), "an empty publish never builds the remote")
}

func TestPublishSingleCommit(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Stage("post.md", []byte("# post"))
	require.NoError(t, err)
	_, err = fx.service.Stage("cover.png", []byte{0x89, 0x50})
	require.NoError(t, err)

	request := testPublishRequest()
	request.Message = "Add launch post"
	result, err := fx.service.Publish(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "new-commit-sha", result.CommitSHA)
	assert.Equal(t, "main", result.Branch)
	assert.Equal(t, 2, result.Files)

	require.Equal(t, 1, fx.remote.commitCount(), "everything lands in one commit")
	commit := fx.remote.commits[0]
	assert.Equal(t, "Add launch post", commit.Message)
	assert.Equal(t, "parent-sha", commit.ParentSHA)
	assert.Equal(t, "base-tree-sha", commit.BaseTreeSHA)
	require.Len(t, commit.Files, 2)
	assert.Equal(t, "assets/images/cover.png", commit.Files[0].Path)
	assert.Equal(t, "content/posts/post.md", commit.Files[1].Path)

	require.Equal(t, []string{"new-commit-sha"}, fx.remote.advanced)

	state, err := fx.service.State()
	require.NoError(t, err)
	assert.False(t, state.Dirty, "a published workspace is clean")
}

func TestPublishDefaultMessage(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Stage("a.md", []byte("a"))
	require.NoError(t, err)
	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.NoError(t, err)

	require.Equal(t, 1, fx.remote.commitCount())
	assert.Equal(t, "Publish 1 files", fx.remote.commits[0].Message)
}

func TestPublishFoldsRequestFiles(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Stage("staged.md", []byte("staged"))
	require.NoError(t, err)

	request := testPublishRequest()
	request.Files = []model.FileChange{
		{Path: "content/posts/inline.md", Content: []byte("inline")},
	}
	result, err := fx.service.Publish(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)

	commit := fx.remote.commits[0]
	paths := []string{commit.Files[0].Path, commit.Files[1].Path}
	assert.Contains(t, paths, "content/posts/inline.md")
	assert.Contains(t, paths, "content/posts/staged.md")
}

func TestPublishRejectsBadRequest(t *testing.T) {
	fx := newPublishFixture(t)

	request := testPublishRequest()
	request.Owner = ""
	_, err := fx.service.Publish(context.Background(), request)
	require.Error(t, err)

	request = testPublishRequest()
	request.Files = []model.FileChange{{Path: "../escape.md", Content: []byte("x")}}
	_, err = fx.service.Publish(context.Background(), request)
	require.Error(t, err)

	state, stateErr := fx.service.State()
	require.NoError(t, stateErr)
	assert.False(t, state.Dirty, "a rejected request must not stage anything")
}

func TestPushRejectedKeepsWorkspace(t *testing.T) {
	fx := newPublishFixture(t)
	fx.remote.advanceErr = fmt.Errorf("branch moved: %w", model.ErrPushRejected)

	_, err := fx.service.Stage("post.md", []byte("# post"))
	require.NoError(t, err)

	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPushRejected))

	state, err := fx.service.State()
	require.NoError(t, err)
	assert.True(t, state.Dirty, "a rejected push leaves the staged content intact")

	// The next publish retries the same content.
	fx.remote.advanceErr = nil
	result, err := fx.service.Publish(context.Background(), testPublishRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)

	require.Equal(t, 2, fx.remote.commitCount())
	assert.Equal(t, "content/posts/post.md", fx.remote.commits[1].Files[0].Path)

	state, err = fx.service.State()
	require.NoError(t, err)
	assert.False(t, state.Dirty)
}

func TestCommitFailureLeavesBranchUntouched(t *testing.T) {
	fx := newPublishFixture(t)
	fx.remote.commitErr = fmt.Errorf("upstream unavailable")

	_, err := fx.service.Stage("post.md", []byte("# post"))
	require.NoError(t, err)

	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.Error(t, err)
	assert.Empty(t, fx.remote.advanced, "the branch must not move when the commit failed")

	state, stateErr := fx.service.State()
	require.NoError(t, stateErr)
	assert.True(t, state.Dirty)
}

func TestHeadFailurePropagates(t *testing.T) {
	fx := newPublishFixture(t)
	fx.remote.headErr = fmt.Errorf("no branch main: %w", model.ErrBranchNotFound)

	_, err := fx.service.Stage("post.md", []byte("# post"))
	require.NoError(t, err)

	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBranchNotFound))
	assert.Equal(t, 0, fx.remote.commitCount())
}

func TestRemoteIsBuiltOnceAndLazily(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Stage("a.md", []byte("a"))
	require.NoError(t, err)
	_, err = fx.service.State()
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(fx.remoteCalls))

	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.NoError(t, err)

	_, err = fx.service.Stage("b.md", []byte("b"))
	require.NoError(t, err)
	_, err = fx.service.Publish(context.Background(), testPublishRequest())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(fx.remoteCalls), "the remote client is reused across publishes")
}

func TestClearChangesDiscardsStagedContent(t *testing.T) {
	fx := newPublishFixture(t)

	_, err := fx.service.Stage("a.md", []byte("a"))
	require.NoError(t, err)
	_, err = fx.service.Stage("b.png", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, fx.service.ClearChanges())

	state, err := fx.service.State()
	require.NoError(t, err)
	assert.False(t, state.Dirty)
	assert.Empty(t, state.Staged)
	assert.Equal(t, int32(0), atomic.LoadInt32(fx.remoteCalls), "discarding never touches the remote")
}

func TestPublishesToSameBranchAreSerialized(t *testing.T) {
	fx := newPublishFixture(t)

	var inFlight, maxInFlight int32
	fx.remote.commitHook = func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			request := testPublishRequest()
			request.Files = []model.FileChange{
				{Path: fmt.Sprintf("content/posts/g%d.md", n), Content: []byte("x")},
			}
			// A call may find its file already swept into an earlier
			// commit; only overlap matters here.
			fx.service.Publish(context.Background(), request)
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, fx.remote.commitCount(), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "commits on one branch never overlap")
}
