package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// OrchestratorService runs the studio as one unit: the local web
// service plus the tunnel that exposes it. Teardown is ordered, the
// tunnel always closes before the web service it fronts.
type OrchestratorService struct {
	runner   port.Runner
	sessions *SessionService
	logger   port.Logger
}

// NewOrchestratorService creates an orchestrator
func NewOrchestratorService(runner port.Runner, sessions *SessionService, logger port.Logger) *OrchestratorService {
	return &OrchestratorService{
		runner:   runner,
		sessions: sessions,
		logger:   logger,
	}
}

// RunCombined starts the web service, waits for it to become ready,
// then brings the tunnel up in front of it. It blocks until ctx is
// canceled or one of the two halves dies.
//
// A tunnel that fails to start does not take the web service down:
// the service keeps serving locally until the operator interrupts,
// and the tunnel error is returned. A web service crash is surfaced,
// never restarted.
func (o *OrchestratorService) RunCombined(ctx context.Context, spec model.ServiceSpec, config model.TunnelConfig, secret model.Secret) error {
	proc, err := o.runner.Start(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to start web service: %v", err)
	}
	o.logger.Info("Web service started (pid %d): %s", proc.Pid(), spec.Command)

	if err := proc.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			o.stopService(proc)
			return ctx.Err()
		}
		select {
		case <-proc.Done():
			return fmt.Errorf("web service exited before becoming ready: %v", exitCause(proc))
		default:
		}
		o.logger.Warn("Web service not confirmed ready (%v), starting tunnel anyway", err)
	}

	session, err := o.sessions.Start(ctx, config, secret)
	if err != nil {
		o.logger.Error("Tunnel failed to start: %v", err)
		o.logger.Warn("Web service is still running on %s, interrupt to stop it", config.LocalAddr())
		select {
		case <-ctx.Done():
		case <-proc.Done():
		}
		o.stopService(proc)
		return err
	}

	o.logger.Info("Studio is live: %s", session.PublicURL())

	var runErr error
	select {
	case <-ctx.Done():
		o.logger.Info("Shutting down")
	case <-session.Done():
		runErr = sessionEndErr(session, o.logger)
	case <-proc.Done():
		runErr = fmt.Errorf("web service exited unexpectedly: %v", exitCause(proc))
	}

	// Tunnel first, then the service it fronts
	if err := o.sessions.Stop(config.Domain); err != nil {
		o.logger.Warn("Failed to stop tunnel session: %v", err)
	}
	o.stopService(proc)

	return runErr
}

// RunTunnel exposes an already-running local service. It blocks until
// ctx is canceled or the session ends.
func (o *OrchestratorService) RunTunnel(ctx context.Context, config model.TunnelConfig, secret model.Secret) error {
	session, err := o.sessions.Start(ctx, config, secret)
	if err != nil {
		return err
	}

	o.logger.Info("Tunnel is live: %s -> %s", session.PublicURL(), config.LocalAddr())

	var runErr error
	select {
	case <-ctx.Done():
		o.logger.Info("Shutting down")
	case <-session.Done():
		runErr = sessionEndErr(session, o.logger)
	}

	if err := o.sessions.Stop(config.Domain); err != nil {
		o.logger.Warn("Failed to stop tunnel session: %v", err)
	}
	return runErr
}

func (o *OrchestratorService) stopService(proc port.Process) {
	if err := proc.Stop(); err != nil {
		o.logger.Warn("Failed to stop web service: %v", err)
	}
}

// sessionEndErr reports how a settled session ended. Hitting the
// session limit is an orderly end, everything else is a failure.
func sessionEndErr(session *model.TunnelSession, logger port.Logger) error {
	err := session.LastErr()
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrSessionLimitExceeded) {
		logger.Info("Session limit reached, shutting down")
		return nil
	}
	return fmt.Errorf("tunnel session ended: %v", err)
}

func exitCause(proc port.Process) error {
	if err := proc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("exit status 0")
}
