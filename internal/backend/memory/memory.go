// Package memory is an in-process backend driver used for offline
// development and tests. It serves the same account, avatar and document
// operations as the HTTP client.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"restate/internal/backend/model"
	"restate/internal/backend/query"
	apperrors "restate/internal/shared/errors"
	"restate/internal/shared/logger"
	"restate/internal/shared/metrics"

	"github.com/google/uuid"
)

// Backend holds collections, accounts and the single signed-in session.
type Backend struct {
	projectID string
	logger    logger.Logger
	filters   *filterEngine
	now       func() time.Time

	mu          sync.RWMutex
	collections map[string][]model.Document // "db/collection"
	accounts    map[string]model.Account    // by id
	defaultUser string
	tokens      map[string]string // secret -> userId
	session     *model.Session
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New creates an empty backend.
func New(projectID string, opts ...Option) (*Backend, error) {
	filters, err := newFilterEngine()
	if err != nil {
		return nil, err
	}
	b := &Backend{
		projectID:   projectID,
		logger:      logger.Nop(),
		filters:     filters,
		now:         time.Now,
		collections: make(map[string][]model.Document),
		accounts:    make(map[string]model.Account),
		tokens:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("memory_backend")
	return b, nil
}

func collectionKey(databaseID, collectionID string) string {
	return databaseID + "/" + collectionID
}

// AddAccount registers an account. The first account added signs in through the OAuth flow.
func (b *Backend) AddAccount(account model.Account) model.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := b.now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	b.accounts[account.ID] = account
	if b.defaultUser == "" {
		b.defaultUser = account.ID
	}
	return account
}

// AddDocuments inserts or replaces documents in a collection.
func (b *Backend) AddDocuments(databaseID, collectionID string, docs ...model.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := collectionKey(databaseID, collectionID)
	existing := b.collections[key]
	now := b.now().UTC()

	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.DatabaseID = databaseID
		d.CollectionID = collectionID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = d.CreatedAt
		}
		if d.Permissions == nil {
			d.Permissions = []string{}
		}
		if d.Data == nil {
			d.Data = map[string]interface{}{}
		}

		replaced := false
		for i := range existing {
			if existing[i].ID == d.ID {
				existing[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, d)
		}
	}
	b.collections[key] = existing
}

// Seed is the JSON layout accepted by LoadSeedFile.
type Seed struct {
	Accounts  []model.Account                        `json:"accounts"`
	Databases map[string]map[string][]model.Document `json:"databases"`
}

// LoadSeed applies a seed.
func (b *Backend) LoadSeed(seed Seed) {
	for _, a := range seed.Accounts {
		b.AddAccount(a)
	}
	for db, collections := range seed.Databases {
		for coll, docs := range collections {
			b.AddDocuments(db, coll, docs...)
		}
	}
}

// LoadSeedFile reads a JSON seed from path.
func (b *Backend) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	b.LoadSeed(seed)
	b.logger.Infof("Loaded seed with %d accounts from %s", len(seed.Accounts), path)
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateOAuth2Token signs the default account in at the provider right away
// and returns the success URL carrying userId and secret.
func (b *Backend) CreateOAuth2Token(ctx context.Context, provider model.OAuthProvider, success, failure string) (res string, err error) {
	defer observe("account.createOAuth2Token", time.Now(), &err)
	if provider == "" {
		return "", apperrors.NewValidationError("provider is required").WithCause(apperrors.ErrInvalidInput)
	}
	target, err := url.Parse(success)
	if err != nil || success == "" {
		return "", apperrors.NewValidationError("invalid success URL").WithCause(apperrors.ErrInvalidInput)
	}

	b.mu.Lock()
	if b.defaultUser == "" {
		b.mu.Unlock()
		b.AddAccount(model.Account{Name: "Demo User", Email: "demo@restate.local", Status: true})
		b.mu.Lock()
	}
	userID := b.defaultUser
	secret := uuid.NewString()
	b.tokens[secret] = userID
	b.mu.Unlock()

	q := target.Query()
	q.Set("userId", userID)
	q.Set("secret", secret)
	target.RawQuery = q.Encode()
	return target.String(), nil
}

// CreateSession consumes a token secret.
func (b *Backend) CreateSession(ctx context.Context, userID, secret string) (res *model.Session, err error) {
	defer observe("account.createSession", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" || secret == "" {
		return nil, apperrors.NewValidationError("userId and secret are required").WithCause(apperrors.ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	owner, ok := b.tokens[secret]
	if !ok || owner != userID {
		return nil, apperrors.NewAuthenticationError("invalid token").WithCause(apperrors.ErrUnauthorized)
	}
	delete(b.tokens, secret)

	now := b.now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UserID:    userID,
		Expire:    now.Add(365 * 24 * time.Hour).Format(time.RFC3339Nano),
		Provider:  "oauth2",
		Current:   true,
	}
	b.session = session
	copied := *session
	return &copied, nil
}

// DeleteSession ends the current session.
func (b *Backend) DeleteSession(ctx context.Context, sessionID string) (err error) {
	defer observe("account.deleteSession", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return apperrors.NewAuthenticationError("no active session").WithCause(apperrors.ErrUnauthorized)
	}
	if sessionID != model.CurrentSession && sessionID != b.session.ID {
		return apperrors.NewNotFoundError("session").WithCause(apperrors.ErrNotFound)
	}
	b.session = nil
	return nil
}

// Get returns the signed-in account.
func (b *Backend) Get(ctx context.Context) (res *model.Account, err error) {
	defer observe("account.get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return nil, apperrors.NewAuthenticationError("no active session").WithCause(apperrors.ErrUnauthorized)
	}
	account, ok := b.accounts[b.session.UserID]
	if !ok {
		return nil, apperrors.NewNotFoundError("account").WithCause(apperrors.ErrNotFound)
	}
	return &account, nil
}

// GetInitials returns an initials avatar URL in the memory:// scheme.
func (b *Backend) GetInitials(name string) string {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	params.Set("project", b.projectID)
	return "memory://avatars/initials?" + params.Encode()
}

// ListDocuments filters, orders and pages a collection.
func (b *Backend) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []query.Query) (res *model.DocumentList, err error) {
	defer observe("databases.listDocuments", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := b.collection(databaseID, collectionID)
	if err != nil {
		return nil, err
	}

	p, err := b.filters.plan(queries)
	if err != nil {
		b.logger.WithFields(map[string]interface{}{
			"database":   databaseID,
			"collection": collectionID,
		}).Warnf("Rejected queries: %v", err)
		return nil, err
	}

	out := p.apply(docs)
	return &model.DocumentList{Total: len(out), Documents: out}, nil
}

// GetDocument returns one document by id.
func (b *Backend) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (res *model.Document, err error) {
	defer observe("databases.getDocument", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, apperrors.NewValidationError("documentId is required").WithCause(apperrors.ErrInvalidInput)
	}
	docs, err := b.collection(databaseID, collectionID)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == documentID {
			found := d
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFoundError("document").WithCause(apperrors.ErrDocumentNotFound)
}

// collection returns a snapshot of the collection's documents.
func (b *Backend) collection(databaseID, collectionID string) ([]model.Document, error) {
	if databaseID == "" {
		return nil, apperrors.NewConfigurationError("databaseId")
	}
	if collectionID == "" {
		return nil, apperrors.NewConfigurationError("collectionId")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	docs, ok := b.collections[collectionKey(databaseID, collectionID)]
	if !ok {
		return nil, apperrors.NewNotFoundError("collection").WithCause(apperrors.ErrNotFound)
	}
	out := make([]model.Document, len(docs))
	copy(out, docs)
	return out, nil
}

func observe(operation string, started time.Time, err *error) {
	metrics.ObserveBackendCall(operation, started, *err)
}
