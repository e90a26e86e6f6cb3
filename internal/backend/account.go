package backend

import (
	"context"
	"net/http"
	"net/url"

	"restate/internal/backend/model"
	apperrors "restate/internal/shared/errors"
)

// Account wraps the /account endpoints of the signed-in user.
type Account struct {
	client *Client
}

// NewAccount creates the account service.
func NewAccount(c *Client) *Account {
	return &Account{client: c}
}

// CreateOAuth2Token returns the URL that starts the provider's OAuth flow.
// The backend redirects to success with userId and secret query params.
// No request is made here.
func (a *Account) CreateOAuth2Token(ctx context.Context, provider model.OAuthProvider, success, failure string) (string, error) {
	if provider == "" {
		return "", apperrors.NewValidationError("provider is required").WithCause(apperrors.ErrInvalidInput)
	}
	params := url.Values{}
	if success != "" {
		params.Set("success", success)
	}
	if failure != "" {
		params.Set("failure", failure)
	}
	params.Set("project", a.client.projectID)
	return a.client.buildURL("/account/tokens/oauth2/"+url.PathEscape(string(provider)), params), nil
}

// CreateSession exchanges a token secret for a session. The session cookie is kept by the client.
func (a *Account) CreateSession(ctx context.Context, userID, secret string) (*model.Session, error) {
	if userID == "" || secret == "" {
		return nil, apperrors.NewValidationError("userId and secret are required").WithCause(apperrors.ErrInvalidInput)
	}
	body := map[string]string{
		"userId": userID,
		"secret": secret,
	}
	session := &model.Session{}
	if err := a.client.call(ctx, "account.createSession", http.MethodPost, "/account/sessions/token", nil, body, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession signs out; pass model.CurrentSession for the caller's session.
func (a *Account) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.NewValidationError("sessionId is required").WithCause(apperrors.ErrInvalidInput)
	}
	err := a.client.call(ctx, "account.deleteSession", http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
	if err == nil && sessionID == model.CurrentSession {
		a.client.setFallbackCookies("")
	}
	return err
}

// Get returns the signed-in account.
func (a *Account) Get(ctx context.Context) (*model.Account, error) {
	account := &model.Account{}
	if err := a.client.call(ctx, "account.get", http.MethodGet, "/account", nil, nil, account); err != nil {
		return nil, err
	}
	return account, nil
}
