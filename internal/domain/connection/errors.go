package connection

import "errors"

var (
	// ErrMisconfigured means provider credentials are missing. Fatal, not retried.
	ErrMisconfigured = errors.New("bank provider is not configured")

	// ErrUserDenied means the provider returned an error query parameter.
	// Terminal for this connection attempt; the user must restart.
	ErrUserDenied = errors.New("user denied bank authorization")

	// ErrMissingConnectionContext means the callback arrived without a
	// resolvable pending-connection session. Terminal; the user must restart.
	ErrMissingConnectionContext = errors.New("no pending connection for callback")

	// ErrInvalidCallback means the callback carried neither or both of the
	// code and error parameters.
	ErrInvalidCallback = errors.New("callback must carry exactly one of code or error")

	// ErrConnectionNotFound is returned for unknown connection ids.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidTransition guards the connection state machine.
	ErrInvalidTransition = errors.New("invalid connection status transition")

	// ErrNotConnected is returned when a refresh is requested for a
	// connection that holds no tokens.
	ErrNotConnected = errors.New("connection is not connected")
)
