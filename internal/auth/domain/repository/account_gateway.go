package repository

import (
	"context"

	backendmodel "restate/internal/backend/model"
)

// AccountGateway is the part of the backend account API the session service uses.
type AccountGateway interface {
	CreateOAuth2Token(ctx context.Context, provider backendmodel.OAuthProvider, success, failure string) (string, error)
	CreateSession(ctx context.Context, userID, secret string) (*backendmodel.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Get(ctx context.Context) (*backendmodel.Account, error)
}

// AvatarGateway builds avatar URLs.
type AvatarGateway interface {
	GetInitials(name string) string
}
