package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// unbindTimeout bounds the release of a binding during teardown.
// Teardown must finish even when the shutdown context is already
// canceled, so the unbind runs on its own clock.
const unbindTimeout = 5 * time.Second

// SessionService owns every tunnel session in this process, at most
// one per domain. It drives sessions through their lifecycle and
// guarantees that teardown of a session runs exactly once, whether
// triggered by stop, by the session limit, or by the transport dying.
type SessionService struct {
	newTransport func() port.Transport
	logger       port.Logger

	mutex    sync.Mutex
	sessions map[string]*liveSession
}

// liveSession pairs a session with the resources behind it
type liveSession struct {
	session   *model.TunnelSession
	transport port.Transport
	bindingID string
	timer     *time.Timer
	teardown  sync.Once
}

// NewSessionService creates a session manager. newTransport is called
// once per session; every session gets its own control channel.
func NewSessionService(newTransport func() port.Transport, logger port.Logger) *SessionService {
	return &SessionService{
		newTransport: newTransport,
		logger:       logger,
		sessions:     make(map[string]*liveSession),
	}
}

// Start brings up a tunnel session for config.Domain and returns it
// once active. The domain is reserved immediately, so a concurrent
// Start for the same domain fails with ErrAlreadyStarting. A session
// that failed earlier blocks the domain until it is discarded.
func (s *SessionService) Start(ctx context.Context, config model.TunnelConfig, secret model.Secret) (*model.TunnelSession, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if secret.IsZero() {
		return nil, fmt.Errorf("tunnel authtoken: %w", model.ErrMissingCredential)
	}

	s.mutex.Lock()
	if existing, exists := s.sessions[config.Domain]; exists {
		status := existing.session.Status()
		switch {
		case status == model.StatusError:
			s.mutex.Unlock()
			return nil, fmt.Errorf("session for %s failed earlier (%v): discard it before starting again",
				config.Domain, existing.session.LastErr())
		case status.Live():
			s.mutex.Unlock()
			return nil, fmt.Errorf("session for %s: %w", config.Domain, model.ErrAlreadyStarting)
		}
	}
	live := &liveSession{
		session:   model.NewTunnelSession(uuid.New().String(), config),
		transport: s.newTransport(),
	}
	s.sessions[config.Domain] = live
	s.mutex.Unlock()

	if err := s.bringUp(ctx, live, secret); err != nil {
		live.session.Fail(err)
		s.releaseResources(live)
		return nil, err
	}
	return live.session, nil
}

// bringUp walks a fresh session to ACTIVE. No lock is held here; the
// registry entry alone reserves the domain while the network round
// trips run.
func (s *SessionService) bringUp(ctx context.Context, live *liveSession, secret model.Secret) error {
	session := live.session
	transport := live.transport

	if err := session.Transition(model.StatusAuthenticating); err != nil {
		return err
	}
	if err := transport.Open(ctx); err != nil {
		return fmt.Errorf("failed to open control channel: %v", err)
	}

	grant, err := transport.Authenticate(ctx, secret.Value)
	if err != nil {
		return err
	}

	// Only a valid grant reaches the binding step
	if err := session.Transition(model.StatusBinding); err != nil {
		return err
	}

	binding, err := transport.Bind(ctx, session.Config)
	if err != nil {
		return err
	}
	live.bindingID = binding.ID

	if err := session.Activate(binding.PublicURL, grant.SessionLimit); err != nil {
		return err
	}
	s.logger.Info("Session active: %s -> %s", binding.PublicURL, session.Config.LocalAddr())

	if grant.Limited() {
		live.timer = time.AfterFunc(grant.SessionLimit, func() { s.expire(live) })
		s.logger.Debug("Session for %s is limited to %s", session.Config.Domain, grant.SessionLimit)
	}

	go s.watch(live)
	return nil
}

// Stop closes the session for domain and releases its resources.
// Stopping a closed or unknown session is a no-op.
func (s *SessionService) Stop(domain string) error {
	s.mutex.Lock()
	live, exists := s.sessions[domain]
	s.mutex.Unlock()
	if !exists {
		return nil
	}

	session := live.session
	switch session.Status() {
	case model.StatusClosed, model.StatusClosing:
		return nil
	}

	if err := session.Transition(model.StatusClosing); err != nil {
		// Startup is still in flight on another goroutine; settle it
		session.Fail(fmt.Errorf("session stopped before becoming active"))
		s.releaseResources(live)
		return nil
	}

	s.releaseResources(live)

	if err := session.Transition(model.StatusClosed); err != nil {
		return err
	}
	s.logger.Info("Session closed: %s", domain)
	return nil
}

// Discard removes the session record for domain, tearing it down
// first if it is still live. This is the only way to clear a failed
// session and free its domain.
func (s *SessionService) Discard(domain string) error {
	s.mutex.Lock()
	live, exists := s.sessions[domain]
	s.mutex.Unlock()
	if !exists {
		return nil
	}

	if live.session.Status().Live() {
		if err := s.Stop(domain); err != nil {
			return err
		}
	} else {
		s.releaseResources(live)
	}

	s.mutex.Lock()
	delete(s.sessions, domain)
	s.mutex.Unlock()

	s.logger.Info("Session discarded: %s", domain)
	return nil
}

// Get returns the session for domain, if any
func (s *SessionService) Get(domain string) (*model.TunnelSession, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	live, exists := s.sessions[domain]
	if !exists {
		return nil, false
	}
	return live.session, true
}

// expire fires when the session limit elapses. The session moves to
// ERROR with the limit as its cause and its resources are released
// the same way Stop releases them.
func (s *SessionService) expire(live *liveSession) {
	session := live.session
	session.Fail(fmt.Errorf("session limit %s reached: %w", session.Limit(), model.ErrSessionLimitExceeded))

	if errors.Is(session.LastErr(), model.ErrSessionLimitExceeded) {
		s.logger.Warn("Session for %s reached its limit and was torn down", session.Config.Domain)
	}
	s.releaseResources(live)
}

// watch fails the session if its transport dies while it is live
func (s *SessionService) watch(live *liveSession) {
	select {
	case <-live.session.Done():
		return
	case <-live.transport.Done():
		cause := live.transport.Err()
		if cause == nil {
			cause = fmt.Errorf("control channel closed")
		}
		live.session.Fail(cause)
		if live.session.Status() == model.StatusError {
			s.logger.Error("Session for %s lost its control channel: %v", live.session.Config.Domain, cause)
		}
		s.releaseResources(live)
	}
}

// releaseResources runs teardown at most once: stop the deadline
// timer, release the binding if the channel is still up, close the
// transport. Stop, expire and watch all funnel through here.
func (s *SessionService) releaseResources(live *liveSession) {
	live.teardown.Do(func() {
		if live.timer != nil {
			live.timer.Stop()
		}

		if live.bindingID != "" {
			select {
			case <-live.transport.Done():
				// Channel is gone; the relay reaps the binding itself
			default:
				ctx, cancel := context.WithTimeout(context.Background(), unbindTimeout)
				if err := live.transport.Unbind(ctx, live.bindingID); err != nil {
					s.logger.Warn("Failed to release binding %s: %v", live.bindingID, err)
				}
				cancel()
			}
		}

		live.transport.Close()
	})
}
