package model

import "errors"

// Error taxonomy shared by the credential, session, and publish services.
// Callers match with errors.Is; services wrap these with context via
// fmt.Errorf("...: %w", err).
var (
	// ErrMissingCredential means no configured source produced a value
	// for a credential. An empty value is never returned instead.
	ErrMissingCredential = errors.New("credential could not be resolved")

	// ErrAuthenticationFailed covers a rejected tunnel authtoken as well
	// as a rejected repository token.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDomainConflict means the reserved domain is already bound by
	// another active session, typically one started elsewhere.
	ErrDomainConflict = errors.New("domain is already bound by an active session")

	// ErrDomainUnavailable means the account does not own the domain.
	ErrDomainUnavailable = errors.New("domain is not reserved for this account")

	// ErrSessionLimitExceeded means the plan's session time limit
	// elapsed while the tunnel was active.
	ErrSessionLimitExceeded = errors.New("session time limit exceeded")

	// ErrAlreadyStarting means a session for the domain is already
	// underway in this process. Callers are expected to fail fast.
	ErrAlreadyStarting = errors.New("a session for this domain is already underway")

	ErrBranchNotFound  = errors.New("branch not found")
	ErrPushRejected    = errors.New("push rejected by remote")
	ErrNothingToCommit = errors.New("nothing to commit")
)
