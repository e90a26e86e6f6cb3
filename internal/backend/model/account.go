package model

import "time"

// Account is the signed-in user record owned by the backend.
type Account struct {
	ID                string                 `json:"$id"`
	CreatedAt         time.Time              `json:"$createdAt"`
	UpdatedAt         time.Time              `json:"$updatedAt"`
	Name              string                 `json:"name"`
	Email             string                 `json:"email"`
	Phone             string                 `json:"phone,omitempty"`
	Status            bool                   `json:"status"`
	EmailVerification bool                   `json:"emailVerification"`
	PhoneVerification bool                   `json:"phoneVerification"`
	Labels            []string               `json:"labels,omitempty"`
	Prefs             map[string]interface{} `json:"prefs,omitempty"`
}

// Session is returned when the backend creates a session from a token secret.
type Session struct {
	ID          string    `json:"$id"`
	CreatedAt   time.Time `json:"$createdAt"`
	UserID      string    `json:"userId"`
	Expire      string    `json:"expire"`
	Provider    string    `json:"provider"`
	ProviderUID string    `json:"providerUid,omitempty"`
	Current     bool      `json:"current"`
}

// OAuthProvider names an identity provider known to the backend.
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "google"
)

// CurrentSession is the session id alias the backend resolves to the caller's session.
const CurrentSession = "current"
