package auth

import (
	"fmt"

	"github.com/bassista/go_weightsync/internal/repository"
)

// TokenRefreshError means the provider could not be reached or rejected the
// refresh token. Tokens for that provider are unavailable for the current run.
type TokenRefreshError struct {
	Provider   repository.Provider
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenRefreshError) Error() string {
	msg := fmt.Sprintf("%s token refresh failed", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}
