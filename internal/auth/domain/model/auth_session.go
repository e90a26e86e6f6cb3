package model

// AuthSessionResultType is the outcome of an external auth session.
type AuthSessionResultType string

const (
	AuthSessionSuccess AuthSessionResultType = "success"
	AuthSessionCancel  AuthSessionResultType = "cancel"
	AuthSessionDismiss AuthSessionResultType = "dismiss"
)

// AuthSessionResult is returned by an external auth session. URL is set on success only.
type AuthSessionResult struct {
	Type AuthSessionResultType `json:"type"`
	URL  string                `json:"url,omitempty"`
}

// IsSuccess reports whether the session completed with a callback URL.
func (r *AuthSessionResult) IsSuccess() bool {
	return r != nil && r.Type == AuthSessionSuccess
}

// Callback query parameters set by the backend on the redirect target
const (
	CallbackParamSecret = "secret"
	CallbackParamUserID = "userId"
)
