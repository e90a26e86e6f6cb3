package usecase

import (
	"context"
	"fmt"
	"net/url"

	"restate/internal/auth/domain/model"
	"restate/internal/auth/domain/repository"
	backendmodel "restate/internal/backend/model"
	apperrors "restate/internal/shared/errors"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/logger"
	"restate/internal/shared/utils"
)

// SessionUsecaseInterface defines the contract for the session use cases.
// Failures are logged and reported as false or nil; callers never see errors.
type SessionUsecaseInterface interface {
	Login(ctx context.Context) bool
	Logout(ctx context.Context) bool
	GetCurrentUser(ctx context.Context) *model.User
}

// SessionUsecase signs the user in through the OAuth redirect flow and
// reads the signed-in account.
type SessionUsecase struct {
	account repository.AccountGateway
	avatars repository.AvatarGateway
	linker  repository.Linker
	opener  repository.AuthSessionOpener
	bus     eventbus.EventBusInterface
	log     logger.Logger
}

// NewSessionUsecase creates the session use cases. bus may be nil.
func NewSessionUsecase(
	account repository.AccountGateway,
	avatars repository.AvatarGateway,
	linker repository.Linker,
	opener repository.AuthSessionOpener,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *SessionUsecase {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionUsecase{
		account: account,
		avatars: avatars,
		linker:  linker,
		opener:  opener,
		bus:     bus,
		log:     log.WithComponent("session_usecase"),
	}
}

// Login runs the OAuth flow with the Google provider and creates a backend
// session from the callback. No step is retried.
func (uc *SessionUsecase) Login(ctx context.Context) bool {
	ctx = utils.WithOperation(ctx, "login")
	session, err := uc.login(ctx)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Login failed: %v", err)
		return false
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"user_id": session.UserID,
	}).Info("User logged in")
	uc.publish(ctx, eventbus.EventTypeUserLoggedIn, session.UserID)
	return true
}

func (uc *SessionUsecase) login(ctx context.Context) (*backendmodel.Session, error) {
	redirectURL := uc.linker.CreateURL("/")

	authURL, err := uc.account.CreateOAuth2Token(ctx, backendmodel.OAuthProviderGoogle, redirectURL, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 token: %w", err)
	}
	if authURL == "" {
		return nil, apperrors.ErrEmptyResponse
	}

	result, err := uc.opener.OpenAuthSession(ctx, authURL, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("open auth session: %w", err)
	}
	if !result.IsSuccess() {
		resultType := "none"
		if result != nil {
			resultType = string(result.Type)
		}
		return nil, fmt.Errorf("%w: result %s", apperrors.ErrAuthSessionNotSuccess, resultType)
	}

	secret, userID, err := callbackParams(result.URL)
	if err != nil {
		return nil, err
	}

	session, err := uc.account.CreateSession(ctx, userID, secret)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotCreated
	}
	return session, nil
}

// callbackParams extracts secret and userId from the redirect the backend sent the browser to.
func callbackParams(callbackURL string) (secret, userID string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("parse callback url: %w", err)
	}
	q := u.Query()
	secret = q.Get(model.CallbackParamSecret)
	userID = q.Get(model.CallbackParamUserID)
	if secret == "" || userID == "" {
		return "", "", apperrors.ErrMissingCallbackParams
	}
	return secret, userID, nil
}

// Logout deletes the current session.
func (uc *SessionUsecase) Logout(ctx context.Context) bool {
	ctx = utils.WithOperation(ctx, "logout")
	if err := uc.account.DeleteSession(ctx, backendmodel.CurrentSession); err != nil {
		uc.log.WithContext(ctx).Errorf("Logout failed: %v", err)
		return false
	}
	uc.log.WithContext(ctx).Info("User logged out")
	uc.publish(ctx, eventbus.EventTypeUserLoggedOut, nil)
	return true
}

// GetCurrentUser returns the signed-in account with its avatar URL, or nil
// when nobody is signed in or the lookup fails.
func (uc *SessionUsecase) GetCurrentUser(ctx context.Context) *model.User {
	ctx = utils.WithOperation(ctx, "get_current_user")
	account, err := uc.account.Get(ctx)
	if err != nil {
		log := uc.log.WithContext(ctx)
		if apperrors.IsAuthentication(err) {
			log.Debugf("No signed-in user: %v", err)
		} else {
			log.Errorf("Failed to get current user: %v", err)
		}
		return nil
	}
	if account == nil || account.ID == "" {
		return nil
	}
	return model.NewUser(*account, uc.avatars.GetInitials(account.Name))
}

func (uc *SessionUsecase) publish(ctx context.Context, eventType string, data interface{}) {
	if uc.bus == nil {
		return
	}
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventType, data, "session_usecase"))
}
