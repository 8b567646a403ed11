package model

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// TunnelProtocol is the protocol exposed at the public address.
type TunnelProtocol string

const (
	// ProtocolHTTP exposes a local HTTP service
	ProtocolHTTP TunnelProtocol = "http"
)

// TunnelConfig describes the binding a session requests. Immutable once
// a session has been started with it.
type TunnelConfig struct {
	// Domain is the reserved domain, globally unique per account
	Domain string
	// Protocol is the exposed protocol
	Protocol TunnelProtocol
	// LocalHost is the address of the local service
	LocalHost string
	// LocalPort is the port of the local service
	LocalPort int
}

// LocalAddr returns the dialable address of the local service.
func (c TunnelConfig) LocalAddr() string {
	return net.JoinHostPort(c.LocalHost, strconv.Itoa(c.LocalPort))
}

// Validate checks the fields a session start requires.
func (c TunnelConfig) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("tunnel config: domain is required")
	}
	if c.LocalPort <= 0 || c.LocalPort > 65535 {
		return fmt.Errorf("tunnel config: invalid local port %d", c.LocalPort)
	}
	return nil
}

// Binding is a granted domain binding on the relay.
type Binding struct {
	// ID identifies the binding for unbind and data messages
	ID string
	// Domain is the bound domain
	Domain string
	// PublicURL is the public address of the binding
	PublicURL string
}

// SessionStatus is the lifecycle state of a tunnel session.
type SessionStatus string

const (
	StatusInit           SessionStatus = "init"
	StatusAuthenticating SessionStatus = "authenticating"
	StatusBinding        SessionStatus = "binding"
	StatusActive         SessionStatus = "active"
	StatusClosing        SessionStatus = "closing"
	StatusClosed         SessionStatus = "closed"
	StatusError          SessionStatus = "error"
)

// sessionEdges lists the legal lifecycle transitions. ERROR is entered
// through Fail, never through Transition, so it has no inbound edges
// here; leaving ERROR is only possible toward CLOSING (an explicit stop).
var sessionEdges = map[SessionStatus][]SessionStatus{
	StatusInit:           {StatusAuthenticating},
	StatusAuthenticating: {StatusBinding},
	StatusBinding:        {StatusActive},
	StatusActive:         {StatusClosing},
	StatusError:          {StatusClosing},
	StatusClosing:        {StatusClosed},
}

// CanTransition reports whether to is a legal next status.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	for _, next := range sessionEdges[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Live reports whether the status still owns resources or may acquire
// them. CLOSED and ERROR records are settled.
func (s SessionStatus) Live() bool {
	return s != StatusClosed && s != StatusError
}

// TunnelSession is one attempt to bind the reserved domain. Created by a
// start request, settled by close, failure, or limit expiry. The record
// outlives teardown so last error stays inspectable until discarded.
type TunnelSession struct {
	// ID identifies the session locally
	ID string
	// Config is the requested binding, immutable
	Config TunnelConfig

	mu        sync.Mutex
	status    SessionStatus
	publicURL string
	startedAt time.Time
	limit     time.Duration
	lastErr   error

	done     chan struct{}
	doneOnce sync.Once
}

// NewTunnelSession creates a session in INIT.
func NewTunnelSession(id string, config TunnelConfig) *TunnelSession {
	return &TunnelSession{
		ID:     id,
		Config: config,
		status: StatusInit,
		done:   make(chan struct{}),
	}
}

// Status returns the current lifecycle state.
func (s *TunnelSession) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// PublicURL returns the public address once the session reached ACTIVE.
func (s *TunnelSession) PublicURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicURL
}

// StartedAt returns when the session entered ACTIVE.
func (s *TunnelSession) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Limit returns the session time limit granted by the plan, 0 when the
// session is unlimited.
func (s *TunnelSession) Limit() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// LastErr returns the error that settled the session, if any.
func (s *TunnelSession) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Live reports whether the session is neither CLOSED nor ERROR.
func (s *TunnelSession) Live() bool {
	return s.Status().Live()
}

// Done is closed when the session settles (CLOSED or ERROR).
func (s *TunnelSession) Done() <-chan struct{} {
	return s.done
}

// Transition moves the session along a legal lifecycle edge.
func (s *TunnelSession) Transition(to SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransition(to) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.status, to)
	}
	s.status = to
	if to == StatusClosed {
		s.signalDone()
	}
	return nil
}

// Activate records the granted binding and enters ACTIVE.
func (s *TunnelSession) Activate(publicURL string, limit time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransition(StatusActive) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.status, StatusActive)
	}
	s.status = StatusActive
	s.publicURL = publicURL
	s.startedAt = time.Now()
	s.limit = limit
	return nil
}

// Fail settles the session in ERROR with err recorded. It is a no-op on
// a session that is already settled or closing; the first cause wins.
func (s *TunnelSession) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusClosed, StatusClosing, StatusError:
		return
	}
	s.status = StatusError
	s.lastErr = err
	s.signalDone()
}

// signalDone closes the done channel once. Callers hold s.mu.
func (s *TunnelSession) signalDone() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
