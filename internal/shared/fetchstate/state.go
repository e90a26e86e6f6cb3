// Package fetchstate tracks the data, loading flag and error message of an
// asynchronous fetch, and lets callers re-run it with new parameters.
package fetchstate

import (
	"context"
	"sync"

	"restate/internal/shared/eventbus"
	"restate/internal/shared/logger"
	"restate/internal/shared/metrics"
)

// UnknownErrorMessage is recorded when a fetch fails with an empty error text.
const UnknownErrorMessage = "An unknown error occurred"

// AlertTitle is the title of the alert raised on a failed fetch.
const AlertTitle = "Error"

// Fetcher loads data for params.
type Fetcher[T, P any] func(ctx context.Context, params P) (T, error)

// Alerter shows a user-facing alert.
type Alerter interface {
	Alert(title, message string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(title, message string)

func (f AlerterFunc) Alert(title, message string) { f(title, message) }

// Config configures a State. All fields are optional.
type Config[P any] struct {
	// Name labels metrics and published events.
	Name string
	// Params are used by the fetch Mount starts.
	Params P
	// Skip disables the initial fetch; loading then starts false.
	Skip bool
	Alerter Alerter
	// Bus and Topic receive a Snapshot after every state change.
	Bus    eventbus.EventBusInterface
	Topic  string
	Logger logger.Logger
}

// Snapshot is a point-in-time copy of the state.
type Snapshot[T any] struct {
	Data    T      `json:"data"`
	HasData bool   `json:"hasData"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// State holds the result of the latest fetch. Concurrent fetches are not
// de-duplicated; the last one to finish wins.
type State[T, P any] struct {
	fetch Fetcher[T, P]
	cfg   Config[P]
	log   logger.Logger

	mu        sync.RWMutex
	data      T
	hasData   bool
	inFlight  int
	err       string
	unmounted bool

	// mountPending reports loading until the fetch Mount starts.
	mountPending bool

	lifecycle context.Context
	cancel    context.CancelFunc
	mountOnce sync.Once
	publishMu sync.Mutex
}

// New creates a State. Unless cfg.Skip is set it reports loading until the
// fetch started by Mount finishes.
func New[T, P any](fetch Fetcher[T, P], cfg Config[P]) *State[T, P] {
	if cfg.Name == "" {
		cfg.Name = "fetch"
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	lifecycle, cancel := context.WithCancel(context.Background())
	s := &State[T, P]{
		fetch:     fetch,
		cfg:       cfg,
		log:       log.WithComponent("fetchstate").WithFields(map[string]interface{}{"state": cfg.Name}),
		lifecycle: lifecycle,
		cancel:    cancel,
	}
	s.mountPending = !cfg.Skip
	return s
}

// Mount starts the initial fetch in the background. Later calls do nothing.
func (s *State[T, P]) Mount() {
	s.mountOnce.Do(func() {
		if s.cfg.Skip {
			return
		}
		go s.run(s.lifecycle, s.cfg.Params, true)
	})
}

// Refetch runs the fetch with params and returns when it has finished.
func (s *State[T, P]) Refetch(ctx context.Context, params P) {
	s.run(ctx, params, false)
}

// Unmount cancels fetches in flight. Results that arrive afterwards are dropped.
func (s *State[T, P]) Unmount() {
	s.mu.Lock()
	s.unmounted = true
	s.mountPending = false
	s.mu.Unlock()
	s.cancel()
}

// Snapshot returns the current state.
func (s *State[T, P]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot[T]{
		Data:    s.data,
		HasData: s.hasData,
		Loading: s.loadingLocked(),
		Error:   s.err,
	}
}

// Loading reports whether a fetch is in flight.
func (s *State[T, P]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingLocked()
}

func (s *State[T, P]) loadingLocked() bool {
	return s.inFlight > 0 || s.mountPending
}

// initial marks the fetch started by Mount.
func (s *State[T, P]) run(ctx context.Context, params P, initial bool) {
	s.mu.Lock()
	if initial {
		s.mountPending = false
	}
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.inFlight++
	s.err = ""
	s.mu.Unlock()

	metrics.FetchStarted(s.cfg.Name)
	s.publish()

	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.lifecycle, cancel)
	data, err := s.fetch(runCtx, params)
	stop()
	cancel()

	metrics.FetchFinished(s.cfg.Name)

	s.mu.Lock()
	s.inFlight--
	s.mountPending = false
	if s.unmounted {
		s.mu.Unlock()
		s.log.Debug("Dropped result of fetch finished after unmount")
		return
	}
	var message string
	if err != nil {
		message = err.Error()
		if message == "" {
			message = UnknownErrorMessage
		}
		s.err = message
	} else {
		s.data = data
		s.hasData = true
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("Fetch failed: %s", message)
		if s.cfg.Alerter != nil {
			s.cfg.Alerter.Alert(AlertTitle, message)
		}
	}
	s.publish()
}

func (s *State[T, P]) publish() {
	if s.cfg.Bus == nil || s.cfg.Topic == "" {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	event := eventbus.NewBasicEventWithSource(s.cfg.Topic, s.Snapshot(), s.cfg.Name)
	if err := s.cfg.Bus.Publish(context.Background(), event); err != nil {
		s.log.Warnf("Failed to publish state change: %v", err)
	}
}

// NoParams is the parameter type of fetches that take none.
type NoParams struct{}
