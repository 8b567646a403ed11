package port

import (
	"context"

	"github.com/glowlab/studioport/internal/domain/model"
)

// Transport is one control-channel connection to the relay. A session
// owns at most one transport: opened during start, closed at teardown.
// There is no automatic reconnect; when the channel dies the owning
// session settles and the caller decides what happens next.
type Transport interface {
	// Open dials the relay control channel
	Open(ctx context.Context) error

	// Authenticate presents the authtoken and returns the plan grant.
	// Must succeed before Bind is attempted.
	Authenticate(ctx context.Context, token string) (*model.AuthGrant, error)

	// Bind requests the reserved domain and returns the binding
	Bind(ctx context.Context, config model.TunnelConfig) (*model.Binding, error)

	// Unbind releases the binding. Best effort during teardown.
	Unbind(ctx context.Context, bindingID string) error

	// Done is closed when the underlying channel dies
	Done() <-chan struct{}

	// Err returns the cause once Done is closed
	Err() error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
