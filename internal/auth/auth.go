package auth

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned by accessors invoked before a
	// successful Initialize. It is a contract violation on the caller's
	// side and is never recovered implicitly.
	ErrNotInitialized = errors.New("credential manager not initialized")

	// ErrAuthenticationFailed marks a rejected credential, either during
	// the initialization probe or reported by the recognizer.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Manager owns the process-wide machine credential used to call the
// speech backend.
//
// Initialize is idempotent and safe for concurrent use: exactly one
// handshake runs at a time and callers arriving during it wait for its
// outcome. The accessors never trigger initialization; they fail fast
// with ErrNotInitialized so that concurrent load cannot fan out into
// duplicate handshakes.
type Manager interface {
	Initialize(ctx context.Context) error
	AccessToken(ctx context.Context) (string, error)
	ProjectID() (string, error)
	IsAuthenticated() bool

	// Refresh tears the credential down completely and runs a fresh
	// Initialize. Used after the recognizer reports an authentication
	// error.
	Refresh(ctx context.Context) error
}
