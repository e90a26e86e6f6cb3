package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"restate/internal/auth/domain/model"
	backendmodel "restate/internal/backend/model"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/fetchstate"
	"restate/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu   sync.Mutex
	user *model.User
}

func (f *fakeUsers) set(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}

func (f *fakeUsers) get(ctx context.Context) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func ada() *model.User {
	return model.NewUser(backendmodel.Account{ID: "user-1", Name: "Ada"}, "memory://avatars/initials?name=Ada")
}

func TestGlobalProvider_InitialStateIsLoading(t *testing.T) {
	p := NewGlobalProvider((&fakeUsers{}).get)
	state := p.State()
	assert.True(t, state.Loading)
	assert.False(t, state.IsLoggedIn)
	assert.Nil(t, state.User)
}

func TestGlobalProvider_MountResolvesUser(t *testing.T) {
	users := &fakeUsers{}
	users.set(ada())
	p := NewGlobalProvider(users.get)
	p.Mount()

	assert.Eventually(t, func() bool { return !p.State().Loading }, time.Second, 5*time.Millisecond)
	state := p.State()
	assert.True(t, state.IsLoggedIn)
	require.NotNil(t, state.User)
	assert.Equal(t, "user-1", state.User.ID)
}

func TestGlobalProvider_RefetchTracksLogout(t *testing.T) {
	users := &fakeUsers{}
	users.set(ada())
	p := NewGlobalProvider(users.get)

	assert.True(t, p.Refetch(context.Background()).IsLoggedIn)

	users.set(nil)
	state := p.Refetch(context.Background())
	assert.False(t, state.IsLoggedIn)
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
}

func TestGlobalProvider_PublishesSessionChanges(t *testing.T) {
	bus := eventbus.NewEventBus(logger.Nop())
	var mu sync.Mutex
	var seen []fetchstate.Snapshot[*model.User]
	bus.Subscribe(eventbus.EventTypeSessionChanged, func(ctx context.Context, event eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Data().(fetchstate.Snapshot[*model.User]))
		return nil
	})

	users := &fakeUsers{}
	users.set(ada())
	p := NewGlobalProvider(users.get, WithEventBus(bus), WithLogger(logger.Nop()))
	p.Refetch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	last := StateFromSnapshot(seen[len(seen)-1])
	assert.True(t, last.IsLoggedIn)
}

func TestUseGlobalContext(t *testing.T) {
	_, err := UseGlobalContext(context.Background())
	assert.ErrorIs(t, err, ErrOutsideProvider)

	p := NewGlobalProvider((&fakeUsers{}).get)
	got, err := UseGlobalContext(WithGlobalProvider(context.Background(), p))
	require.NoError(t, err)
	assert.Same(t, p, got)
}
