package core

import "errors"

// Failure kinds for the fitness connect flow. Handlers map these to HTTP
// statuses and generic user-facing messages; the detailed cause stays in
// the server log.
var (
	// ErrMissingParameters signals that a required callback input (the
	// authorization code or the stored verifier) was absent or expired.
	// The member can recover by restarting the connect flow.
	ErrMissingParameters = errors.New("missing or expired authorization parameters")

	// ErrUnauthenticated signals that no local user could be resolved for
	// the request.
	ErrUnauthenticated = errors.New("no authenticated user")

	// ErrTokenExchangeRejected signals that the provider declined the
	// code/verifier pair (expired, reused, or mismatched).
	ErrTokenExchangeRejected = errors.New("provider rejected the token exchange")

	// ErrPersistenceFailure signals that the local connection write failed.
	// On disconnect this is the only user-visible failure.
	ErrPersistenceFailure = errors.New("connection persistence failed")
)
