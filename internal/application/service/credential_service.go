package service

import (
	"context"
	"fmt"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// Resolver resolves credentials by walking its sources in order. The
// environment is consulted before the interactive prompt, and sources
// that cannot run (no terminal) are skipped.
type Resolver struct {
	sources []port.CredentialSource
	logger  port.Logger
}

// NewResolver creates a Resolver that consults sources in the order given
func NewResolver(logger port.Logger, sources ...port.CredentialSource) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  logger,
	}
}

// Resolve returns the first value any source produces for spec. Only
// the credential name and winning source are ever logged, never the
// value.
func (r *Resolver) Resolve(ctx context.Context, spec model.CredentialSpec) (model.Secret, error) {
	for _, source := range r.sources {
		if !source.Available() {
			continue
		}
		value, ok, err := source.Resolve(ctx, spec)
		if err != nil {
			return model.Secret{}, fmt.Errorf("failed to resolve %s: %v", spec.Name, err)
		}
		if !ok {
			continue
		}
		secret := model.Secret{
			Name:   spec.Name,
			Value:  value,
			Source: source.Kind(),
		}
		r.logger.Debug("Resolved credential %s from %s", spec.Name, secret.Source)
		return secret, nil
	}

	return model.Secret{}, fmt.Errorf("%s is not set: export %s or run interactively: %w",
		spec.Name, spec.EnvVar, model.ErrMissingCredential)
}

// ResolveAll resolves every spec or fails on the first one missing
func (r *Resolver) ResolveAll(ctx context.Context, specs ...model.CredentialSpec) ([]model.Secret, error) {
	secrets := make([]model.Secret, 0, len(specs))
	for _, spec := range specs {
		secret, err := r.Resolve(ctx, spec)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	return secrets, nil
}
