package repository

import (
	"context"

	"restate/internal/auth/domain/model"
)

// Linker builds the redirect target the OAuth flow returns to.
type Linker interface {
	CreateURL(path string) string
}

// AuthSessionOpener runs an external auth session: it presents authURL to
// the user and waits until a navigation to redirectURL, a cancel or a
// dismissal.
type AuthSessionOpener interface {
	OpenAuthSession(ctx context.Context, authURL, redirectURL string) (*model.AuthSessionResult, error)
}
