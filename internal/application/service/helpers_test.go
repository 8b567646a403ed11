package service

import (
	"context"
	"sync"
	"time"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// nopLogger swallows all output so tests stay quiet.
type nopLogger struct{}

func (nopLogger) Debug(format string, args ...interface{}) {}
func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Warn(format string, args ...interface{})  {}
func (nopLogger) Error(format string, args ...interface{}) {}
func (nopLogger) SetLevel(level string)                    {}
func (nopLogger) Close() error                             { return nil }

// eventLog records what happened in which order across fakes. Safe for
// concurrent use; teardown runs on watcher goroutines.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(entry string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *eventLog) snapshot() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *eventLog) index(entry string) int {
	for i, e := range l.snapshot() {
		if e == entry {
			return i
		}
	}
	return -1
}

// fakeTransport is a scripted control channel. Zero value plus a domain
// walks the happy path; error fields and the block channels bend it.
type fakeTransport struct {
	grant     *model.AuthGrant
	openErr   error
	authErr   error
	bindErr   error
	unbindErr error

	// bindStarted is closed when Bind is entered, bindBlock holds Bind
	// until closed. Both optional.
	bindStarted chan struct{}
	bindBlock   chan struct{}

	events *eventLog

	mu          sync.Mutex
	gotToken    string
	openCalls   int
	authCalls   int
	bindCalls   int
	unbound     []string
	closeCalls  int
	startedOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{done: make(chan struct{})}
}

func (t *fakeTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	t.openCalls++
	t.mu.Unlock()
	t.events.add("transport open")
	return t.openErr
}

func (t *fakeTransport) Authenticate(ctx context.Context, token string) (*model.AuthGrant, error) {
	t.mu.Lock()
	t.authCalls++
	t.gotToken = token
	t.mu.Unlock()
	t.events.add("transport auth")
	if t.authErr != nil {
		return nil, t.authErr
	}
	if t.grant != nil {
		return t.grant, nil
	}
	return &model.AuthGrant{Account: "studio", Plan: "free"}, nil
}

func (t *fakeTransport) Bind(ctx context.Context, config model.TunnelConfig) (*model.Binding, error) {
	t.mu.Lock()
	t.bindCalls++
	t.mu.Unlock()
	t.events.add("transport bind")
	if t.bindStarted != nil {
		t.startedOnce.Do(func() { close(t.bindStarted) })
	}
	if t.bindBlock != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.bindBlock:
		}
	}
	if t.bindErr != nil {
		return nil, t.bindErr
	}
	return &model.Binding{
		ID:        "bind-1",
		Domain:    config.Domain,
		PublicURL: "https://" + config.Domain,
	}, nil
}

func (t *fakeTransport) Unbind(ctx context.Context, bindingID string) error {
	t.mu.Lock()
	t.unbound = append(t.unbound, bindingID)
	t.mu.Unlock()
	t.events.add("transport unbind")
	return t.unbindErr
}

func (t *fakeTransport) Done() <-chan struct{} { return t.done }

func (t *fakeTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closeCalls++
	t.mu.Unlock()
	t.events.add("transport close")
	t.doneOnce.Do(func() { close(t.done) })
	return nil
}

// kill simulates the control channel dying underneath the session.
func (t *fakeTransport) kill(cause error) {
	t.mu.Lock()
	t.err = cause
	t.mu.Unlock()
	t.doneOnce.Do(func() { close(t.done) })
}

func (t *fakeTransport) unbindCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.unbound)
}

func (t *fakeTransport) token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gotToken
}

func (t *fakeTransport) binds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bindCalls
}

var _ port.Transport = (*fakeTransport)(nil)

// fakeProcess is a scripted web-service process.
type fakeProcess struct {
	pid      int
	readyErr error
	stopErr  error

	events *eventLog

	mu       sync.Mutex
	stops    int
	exitErr  error
	done     chan struct{}
	doneOnce sync.Once
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{pid: 4242, done: make(chan struct{})}
}

func (p *fakeProcess) WaitReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.readyErr
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Stop() error {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
	p.events.add("service stop")
	p.doneOnce.Do(func() { close(p.done) })
	return p.stopErr
}

// exit simulates the process dying on its own.
func (p *fakeProcess) exit(cause error) {
	p.mu.Lock()
	p.exitErr = cause
	p.mu.Unlock()
	p.doneOnce.Do(func() { close(p.done) })
}

func (p *fakeProcess) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

var _ port.Process = (*fakeProcess)(nil)

// fakeRunner hands out a prepared process.
type fakeRunner struct {
	proc     *fakeProcess
	startErr error

	mu      sync.Mutex
	started []model.ServiceSpec
}

func (r *fakeRunner) Start(ctx context.Context, spec model.ServiceSpec) (port.Process, error) {
	r.mu.Lock()
	r.started = append(r.started, spec)
	r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.proc, nil
}

var _ port.Runner = (*fakeRunner)(nil)

// fakeSource is a scripted credential source.
type fakeSource struct {
	kind      model.SecretSource
	available bool
	values    map[string]string
	err       error

	mu    sync.Mutex
	asked []string
}

func (s *fakeSource) Kind() model.SecretSource { return s.kind }

func (s *fakeSource) Available() bool { return s.available }

func (s *fakeSource) Resolve(ctx context.Context, spec model.CredentialSpec) (string, bool, error) {
	s.mu.Lock()
	s.asked = append(s.asked, spec.Name)
	s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	value, ok := s.values[spec.Name]
	return value, ok, nil
}

var _ port.CredentialSource = (*fakeSource)(nil)

// fakeRemote is a scripted repository host. commitHook, when set, runs
// at the top of every CreateCommit.
type fakeRemote struct {
	head       *model.BranchHead
	headErr    error
	commitErr  error
	advanceErr error
	commitSHA  string
	commitHook func()

	mu       sync.Mutex
	commits  []model.RemoteCommit
	advanced []string
}

func (r *fakeRemote) Head(ctx context.Context, owner, repo, branch string) (*model.BranchHead, error) {
	if r.headErr != nil {
		return nil, r.headErr
	}
	if r.head != nil {
		return r.head, nil
	}
	return &model.BranchHead{CommitSHA: "parent-sha", TreeSHA: "base-tree-sha"}, nil
}

func (r *fakeRemote) CreateCommit(ctx context.Context, owner, repo string, commit model.RemoteCommit) (*model.CommitResult, error) {
	if r.commitHook != nil {
		r.commitHook()
	}
	r.mu.Lock()
	r.commits = append(r.commits, commit)
	r.mu.Unlock()
	if r.commitErr != nil {
		return nil, r.commitErr
	}
	sha := r.commitSHA
	if sha == "" {
		sha = "new-commit-sha"
	}
	return &model.CommitResult{CommitSHA: sha, TreeSHA: "new-tree-sha"}, nil
}

func (r *fakeRemote) AdvanceBranch(ctx context.Context, owner, repo, branch, sha string) error {
	if r.advanceErr != nil {
		return r.advanceErr
	}
	r.mu.Lock()
	r.advanced = append(r.advanced, sha)
	r.mu.Unlock()
	return nil
}

func (r *fakeRemote) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

var _ port.RemoteRepository = (*fakeRemote)(nil)

// Shared fixtures.

func testTunnelConfig() model.TunnelConfig {
	return model.TunnelConfig{
		Domain:    "wahoo-unified-oyster.example",
		Protocol:  model.ProtocolHTTP,
		LocalHost: "127.0.0.1",
		LocalPort: 8501,
	}
}

func testSecret() model.Secret {
	return model.Secret{
		Name:   "tunnel-authtoken",
		Value:  "tok-123",
		Source: model.SourceEnvironment,
	}
}

// waitSettled waits for the session to settle or fails the channel read
// after a generous timeout.
func waitSettled(session *model.TunnelSession, timeout time.Duration) bool {
	select {
	case <-session.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}
