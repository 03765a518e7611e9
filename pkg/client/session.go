package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
)

// DefaultRevalidateInterval is how often Watch rechecks a session when no
// interval is configured.
const DefaultRevalidateInterval = 5 * time.Minute

// Status is the coarse session state.
type Status string

const (
	// StatusLoading is set before the first check and while signing in.
	StatusLoading Status = "loading"
	// StatusAuthenticated means a verified user is attached to the session.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no user is signed in or the last check failed.
	StatusUnauthenticated Status = "unauthenticated"
)

// State is an immutable view of the session.
type State struct {
	Status Status
	User   *domain.User
	Err    string
}

// AuthAPI is the subset of Client a Session needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Verify(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithRevalidateInterval sets the period Watch uses when called with a
// non-positive interval.
func WithRevalidateInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Session tracks who is signed in and keeps the token fresh.
type Session struct {
	api        AuthAPI
	tokens     TokenStore
	logger     *zap.Logger
	interval   time.Duration
	foreground chan struct{}

	mu        sync.Mutex
	gen       uint64 // bumped by Login, Register and Logout; stale checks are dropped
	state     State
	listeners []func(State)
}

// NewSession starts in the loading state; call CheckAuth to resolve it.
func NewSession(api AuthAPI, tokens TokenStore, logger *zap.Logger, opts ...SessionOption) *Session {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		api:        api,
		tokens:     tokens,
		logger:     logger,
		interval:   DefaultRevalidateInterval,
		foreground: make(chan struct{}, 1),
		state:      State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers fn to run after every state transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login signs in and stores the token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	return s.signIn(func() (*dto.AuthResponse, error) {
		return s.api.Login(ctx, email, password)
	})
}

// Register creates an account and signs the session in with it.
func (s *Session) Register(ctx context.Context, req dto.RegisterRequest) error {
	return s.signIn(func() (*dto.AuthResponse, error) {
		return s.api.Register(ctx, req)
	})
}

func (s *Session) signIn(call func() (*dto.AuthResponse, error)) error {
	gen := s.transition(State{Status: StatusLoading}, false)

	res, err := call()
	if err != nil {
		s.commit(gen, State{Status: StatusUnauthenticated, Err: errorMessage(err)}, nil)
		return err
	}

	s.commit(gen, State{Status: StatusAuthenticated, User: res.User}, func() {
		s.tokens.Save(res.Token, res.ExpiresAt)
	})
	return nil
}

// CheckAuth revalidates the stored token. A 401 discards it; any other
// failure keeps it and Watch tries again on its next tick. A result that
// arrives after Login, Register or Logout is dropped.
func (s *Session) CheckAuth(ctx context.Context) {
	gen := s.generation()

	token, ok := s.tokens.Load()
	if !ok {
		s.commit(gen, State{Status: StatusUnauthenticated}, nil)
		return
	}

	user, err := s.api.Verify(ctx, token)
	if err != nil {
		if IsUnauthorized(err) {
			s.commit(gen, State{Status: StatusUnauthenticated}, s.tokens.Clear)
			return
		}
		s.logger.Warn("session check failed", zap.Error(err))
		s.commit(gen, State{Status: StatusUnauthenticated, Err: errorMessage(err)}, nil)
		return
	}

	s.commit(gen, State{Status: StatusAuthenticated, User: user}, nil)
}

// Logout forgets the session locally, then tells the server. It never fails.
func (s *Session) Logout(ctx context.Context) {
	token, _ := s.tokens.Load()
	s.transition(State{Status: StatusUnauthenticated}, true)

	if err := s.api.Logout(ctx, token); err != nil {
		s.logger.Warn("logout request failed", zap.Error(err))
	}
}

// Foreground asks Watch for an immediate recheck, for example when the
// application regains focus.
func (s *Session) Foreground() {
	select {
	case s.foreground <- struct{}{}:
	default:
	}
}

// Watch rechecks the session every interval and on Foreground until ctx is
// cancelled. A non-positive interval uses the session default. Sessions
// without a stored token are left alone.
func (s *Session) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.foreground:
		}
		if s.shouldRecheck() {
			s.CheckAuth(ctx)
		}
	}
}

// CanAccess mirrors the server's page gate for the current user.
func (s *Session) CanAccess(path string) bool {
	state := s.Snapshot()
	if state.Status != StatusAuthenticated || state.User == nil {
		return auth.IsPublic(path)
	}
	return auth.IsAllowed(state.User.Role, path)
}

func (s *Session) shouldRecheck() bool {
	if s.Snapshot().Status == StatusAuthenticated {
		return true
	}
	_, ok := s.tokens.Load()
	return ok
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// transition starts a new generation, invalidating in-flight checks.
func (s *Session) transition(next State, clearToken bool) uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if clearToken {
		s.tokens.Clear()
	}
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, next)
	return gen
}

// commit applies next and the optional token side effect only if no other
// transition happened since gen was read.
func (s *Session) commit(gen uint64, next State, apply func()) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	if apply != nil {
		apply()
	}
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, next)
	return true
}

func (s *Session) snapshotListeners() []func(State) {
	out := make([]func(State), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
