package port

import (
	"context"

	"github.com/glowlab/studioport/internal/domain/model"
)

// CredentialSource is one place a credential may be resolved from. The
// resolver consults sources in order; a source that has no value for a
// spec answers ok=false so the next one is tried.
type CredentialSource interface {
	// Kind reports which resolution source this is
	Kind() model.SecretSource

	// Available reports whether the source can be consulted at all in
	// the current context (an interactive source needs a terminal)
	Available() bool

	// Resolve returns the value for spec. ok is false when the source
	// has no value; err is reserved for read failures.
	Resolve(ctx context.Context, spec model.CredentialSpec) (value string, ok bool, err error)
}
