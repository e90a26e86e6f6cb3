// Package provider exposes the signed-in user to the rest of the
// application through a single shared fetch state.
package provider

import (
	"context"
	"errors"

	"restate/internal/auth/domain/model"
	"restate/internal/shared/contextkeys"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/fetchstate"
	"restate/internal/shared/logger"
)

// ErrOutsideProvider is returned by UseGlobalContext when no provider is in scope.
var ErrOutsideProvider = errors.New("useGlobalContext must be used within a GlobalProvider")

// CurrentUserFunc loads the signed-in user; nil means nobody is signed in.
type CurrentUserFunc func(ctx context.Context) *model.User

// SessionState is what consumers of the global context see.
type SessionState struct {
	IsLoggedIn bool        `json:"isLoggedIn"`
	User       *model.User `json:"user"`
	Loading    bool        `json:"loading"`
}

// GlobalProvider owns the fetch state bound to the current-user lookup.
type GlobalProvider struct {
	state *fetchstate.State[*model.User, fetchstate.NoParams]
}

// Option configures a GlobalProvider.
type Option func(*fetchstate.Config[fetchstate.NoParams])

// WithEventBus publishes every session change as eventbus.EventTypeSessionChanged.
func WithEventBus(bus eventbus.EventBusInterface) Option {
	return func(cfg *fetchstate.Config[fetchstate.NoParams]) {
		cfg.Bus = bus
		cfg.Topic = eventbus.EventTypeSessionChanged
	}
}

// WithAlerter sets where failed lookups are reported.
func WithAlerter(a fetchstate.Alerter) Option {
	return func(cfg *fetchstate.Config[fetchstate.NoParams]) {
		cfg.Alerter = a
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cfg *fetchstate.Config[fetchstate.NoParams]) {
		cfg.Logger = l
	}
}

// NewGlobalProvider creates the provider. Call Mount to run the first lookup.
func NewGlobalProvider(getCurrentUser CurrentUserFunc, opts ...Option) *GlobalProvider {
	cfg := fetchstate.Config[fetchstate.NoParams]{Name: "global_session"}
	for _, opt := range opts {
		opt(&cfg)
	}
	fetch := func(ctx context.Context, _ fetchstate.NoParams) (*model.User, error) {
		return getCurrentUser(ctx), nil
	}
	return &GlobalProvider{
		state: fetchstate.New(fetch, cfg),
	}
}

// Mount starts the initial lookup.
func (p *GlobalProvider) Mount() {
	p.state.Mount()
}

// Unmount cancels a lookup in flight.
func (p *GlobalProvider) Unmount() {
	p.state.Unmount()
}

// State returns the current session state.
func (p *GlobalProvider) State() SessionState {
	return StateFromSnapshot(p.state.Snapshot())
}

// Refetch repeats the current-user lookup and returns the resulting state.
func (p *GlobalProvider) Refetch(ctx context.Context) SessionState {
	p.state.Refetch(ctx, fetchstate.NoParams{})
	return p.State()
}

// StateFromSnapshot converts a fetch-state snapshot into a SessionState.
func StateFromSnapshot(snap fetchstate.Snapshot[*model.User]) SessionState {
	return SessionState{
		IsLoggedIn: snap.Data != nil,
		User:       snap.Data,
		Loading:    snap.Loading,
	}
}

// WithGlobalProvider returns a context carrying p.
func WithGlobalProvider(ctx context.Context, p *GlobalProvider) context.Context {
	return context.WithValue(ctx, contextkeys.GlobalProviderKey, p)
}

// UseGlobalContext returns the provider in ctx.
func UseGlobalContext(ctx context.Context) (*GlobalProvider, error) {
	p, ok := ctx.Value(contextkeys.GlobalProviderKey).(*GlobalProvider)
	if !ok || p == nil {
		return nil, ErrOutsideProvider
	}
	return p, nil
}
