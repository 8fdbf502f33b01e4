package auth

import "github.com/pkg/errors"

// Typed failure states for the login flow, surfaced to callers so the CLI
// can print a targeted message instead of a generic "login failed".
var (
	ErrDiscoveryFailed      = errors.New("failed to discover authorization endpoints")
	ErrXSRFMismatch         = errors.New("callback state did not match the request that was sent")
	ErrCallbackError        = errors.New("identity provider returned an error on the callback")
	ErrTokenExchangeFailed  = errors.New("failed to exchange authorization code for a token")
	ErrAccountNotActivated  = errors.New("account is not yet activated")
	ErrRoutabilityViolation = errors.New("refusing to send an authorization request over http to a publicly routable host")
	ErrTimedOut             = errors.New("timed out waiting for the browser to complete authorization")
	ErrNotLoggedIn          = errors.New("not logged in")
)

// CallbackError is returned when the loopback callback handler receives
// neither a code nor a recognizable state mismatch: the identity provider
// itself reported a failure via the `error`/`error_description` query
// params (§7's CallbackError{error, description}).
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Is reports ErrCallbackError-sentinel equivalence so callers that match
// on the generic sentinel with errors.Is still work.
func (e *CallbackError) Is(target error) bool {
	return target == ErrCallbackError
}
