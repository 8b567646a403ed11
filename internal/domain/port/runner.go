package port

import (
	"context"

	"github.com/glowlab/studioport/internal/domain/model"
)

// Runner launches the local web-service process in combined mode.
type Runner interface {
	// Start launches the service described by spec. The returned
	// process is running when Start returns without error.
	Start(ctx context.Context, spec model.ServiceSpec) (Process, error)
}

// Process is one supervised web-service process. Crashes are surfaced
// through Done/Err; the runner never restarts a process on its own.
type Process interface {
	// WaitReady blocks until the service accepts connections on its
	// probe address, or just sits out the grace delay when the spec
	// has no probe address
	WaitReady(ctx context.Context) error

	// Done is closed when the process exits
	Done() <-chan struct{}

	// Err returns the exit cause once Done is closed
	Err() error

	// Pid returns the operating system process id
	Pid() int

	// Stop terminates the process, graceful first, then hard after the
	// spec's stop timeout. Idempotent.
	Stop() error
}
