package credential

import (
	"context"
	"os"
	"strings"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// EnvSource resolves credentials from environment variables.
type EnvSource struct{}

// NewEnvSource creates a new EnvSource instance
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Kind reports the resolution source
func (s *EnvSource) Kind() model.SecretSource {
	return model.SourceEnvironment
}

// Available always answers true; the environment can always be read
func (s *EnvSource) Available() bool {
	return true
}

// Resolve reads the spec's environment variable. Whitespace-only values
// count as unset so a stray export never becomes an empty secret.
func (s *EnvSource) Resolve(_ context.Context, spec model.CredentialSpec) (string, bool, error) {
	if spec.EnvVar == "" {
		return "", false, nil
	}
	value, ok := os.LookupEnv(spec.EnvVar)
	if !ok {
		return "", false, nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Ensure EnvSource implements port.CredentialSource
var _ port.CredentialSource = (*EnvSource)(nil)
