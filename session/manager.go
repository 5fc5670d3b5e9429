// Package session owns the authenticated-user lifecycle of the console:
// bootstrap from the persisted store, login, registration, refresh and
// logout. Every other component reads the session through Snapshot and
// Subscribe and never mutates it.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-platform-console/api"
	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/kvstore"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Manager struct {
	client  api.Authenticator
	store   *kvstore.Store
	logger  zerolog.Logger
	nowFunc func() time.Time

	busy         atomic.Bool // single writer for network-backed transitions
	bootstrapped atomic.Bool

	mu       sync.RWMutex
	snapshot Snapshot

	// notifyMu orders notifications the same way as the transitions
	notifyMu    sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(client api.Authenticator, store *kvstore.Store, options ...ManagerOption) *Manager {
	m := &Manager{
		client:      client,
		store:       store,
		logger:      log.Logger,
		nowFunc:     time.Now,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.clone()
}

// Subscribe registers fn for every session change and returns the function
// that removes it. fn runs on the goroutine that made the change and must not
// call Manager methods that change state.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.notifyMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.notifyMu.Lock()
			delete(m.subscribers, id)
			m.notifyMu.Unlock()
		})
	}
}

// Bootstrap resolves the persisted session. It runs once; later calls return
// the current snapshot. It never fails for a bad or unreachable token, the
// session just becomes anonymous.
func (m *Manager) Bootstrap(ctx context.Context) (Snapshot, error) {
	if m.bootstrapped.Load() {
		return m.Snapshot(), nil
	}
	release, err := m.acquire("Bootstrap")
	if err != nil {
		return m.Snapshot(), err
	}
	defer release()
	if !m.bootstrapped.CompareAndSwap(false, true) {
		return m.Snapshot(), nil
	}

	token, ok := m.store.GetString(kvstore.KeyAuthToken)
	if !ok {
		m.logger.Debug().Msg("no persisted token")
		return m.becomeAnonymous(false), nil
	}
	if expired(token, m.nowFunc()) {
		m.logger.Info().Msg("persisted token expired, discarding")
		return m.becomeAnonymous(true), nil
	}

	user, err := m.client.FetchCurrentUser(ctx, token)
	if err != nil {
		// The token cannot be confirmed, fail closed
		m.logger.Info().Err(err).Msg("persisted token rejected, discarding")
		return m.becomeAnonymous(true), nil
	}
	if !user.IsResolvable() {
		m.logger.Info().Msg("persisted token has no resolvable user, discarding")
		return m.becomeAnonymous(true), nil
	}
	return m.becomeAuthenticated(token, user), nil
}

// Login exchanges credentials for a session. On failure the state is left as
// it was and the error wraps ErrInvalidCredentials, ErrValidation,
// ErrNetworkFailure or ErrBusy.
func (m *Manager) Login(ctx context.Context, credentials users.Credentials) (Snapshot, error) {
	if err := users.ValidateCredentials(credentials); err != nil {
		return m.Snapshot(), errors.Wrap(err, "[Manager.Login]")
	}
	release, err := m.acquire("Login")
	if err != nil {
		return m.Snapshot(), err
	}
	defer release()

	result, err := m.client.Login(ctx, credentials)
	if err != nil {
		m.logger.Info().Err(err).Str("email", credentials.Email).Msg("login failed")
		return m.Snapshot(), errors.Wrap(err, "[Manager.Login]")
	}
	return m.finishAuth(result, "[Manager.Login]")
}

// Register creates a client user and logs it in. The payload is checked
// locally first so obviously bad input never reaches the network.
func (m *Manager) Register(ctx context.Context, registration users.Registration) (Snapshot, error) {
	if err := users.ValidateRegistration(registration); err != nil {
		return m.Snapshot(), errors.Wrap(err, "[Manager.Register]")
	}
	release, err := m.acquire("Register")
	if err != nil {
		return m.Snapshot(), err
	}
	defer release()

	result, err := m.client.Register(ctx, registration)
	if err != nil {
		m.logger.Info().Err(err).Str("email", registration.Email).Msg("registration failed")
		return m.Snapshot(), errors.Wrap(err, "[Manager.Register]")
	}
	return m.finishAuth(result, "[Manager.Register]")
}

// Refresh re-fetches the current user. ErrUnauthorized ends the session,
// any other failure leaves it untouched.
func (m *Manager) Refresh(ctx context.Context) (Snapshot, error) {
	release, err := m.acquire("Refresh")
	if err != nil {
		return m.Snapshot(), err
	}
	defer release()

	current := m.Snapshot()
	if !current.IsAuthenticated() {
		return current, errors.Wrap(apperrors.ErrNotAuthenticated, "[Manager.Refresh]")
	}

	user, err := m.client.FetchCurrentUser(ctx, current.Token)
	if err == nil && !user.IsResolvable() {
		err = errors.Wrap(apperrors.ErrUnauthorized, "unresolvable user")
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			m.logger.Info().Msg("token rejected on refresh, logging out")
			m.ReportUnauthorized(current.Token)
		}
		return m.Snapshot(), errors.Wrap(err, "[Manager.Refresh]")
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.snapshot.Generation != current.Generation || !m.snapshot.IsAuthenticated() {
		// Logged out while the fetch was in flight
		snap := m.snapshot.clone()
		m.mu.Unlock()
		return snap, nil
	}
	m.store.Set(kvstore.KeyAuthUser, user)
	m.snapshot.User = user.Clone()
	snap := m.snapshot.clone()
	m.mu.Unlock()

	m.notify(snap)
	return snap, nil
}

// Logout clears the session from memory and the persisted store
func (m *Manager) Logout() Snapshot {
	return m.becomeAnonymous(true)
}

// ReportUnauthorized is called by components whose API call was rejected with
// ErrUnauthorized for token. It logs the session out unless token has already
// been replaced. An empty token matches any session. Reports whether the
// session was ended.
func (m *Manager) ReportUnauthorized(token string) bool {
	m.mu.RLock()
	current := m.snapshot.Token
	state := m.snapshot.State
	m.mu.RUnlock()

	if state != StateAuthenticated || (token != "" && token != current) {
		return false
	}
	_, ended := m.becomeAnonymousIf(func(s Snapshot) bool {
		return s.State == StateAuthenticated && (token == "" || s.Token == token)
	}, true)
	if ended {
		m.logger.Info().Msg("unauthorized reported, logged out")
	}
	return ended
}

// PersistedUser returns the user snapshot last written to the store. It is a
// display hint only and says nothing about the validity of the session.
func (m *Manager) PersistedUser() (*users.User, bool) {
	var u users.User
	if !m.store.Get(kvstore.KeyAuthUser, &u) || u.ID == "" {
		return nil, false
	}
	return &u, true
}

func (m *Manager) finishAuth(result *api.AuthResult, where string) (Snapshot, error) {
	if result == nil || result.Token == "" || !result.User.IsResolvable() {
		return m.Snapshot(), errors.Wrap(apperrors.ErrNetworkFailure, where+" incomplete auth response")
	}
	m.bootstrapped.Store(true)
	snap := m.becomeAuthenticated(result.Token, result.User)
	m.logger.Info().Str("user_id", snap.User.ID).Str("role", string(snap.User.Role)).Msg("session authenticated")
	return snap, nil
}

// becomeAuthenticated persists the token and then the user before the
// in-memory state changes, so a crash in between is recovered on next boot.
func (m *Manager) becomeAuthenticated(token string, user *users.User) Snapshot {
	m.store.Set(kvstore.KeyAuthToken, token)
	m.store.Set(kvstore.KeyAuthUser, user)

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	m.snapshot = Snapshot{
		State:      StateAuthenticated,
		User:       user.Clone(),
		Token:      token,
		Generation: m.snapshot.Generation + 1,
	}
	snap := m.snapshot.clone()
	m.mu.Unlock()

	m.notify(snap)
	return snap
}

func (m *Manager) becomeAnonymous(clearStore bool) Snapshot {
	snap, _ := m.becomeAnonymousIf(nil, clearStore)
	return snap
}

// becomeAnonymousIf ends the session when cond holds for the current one
func (m *Manager) becomeAnonymousIf(cond func(Snapshot) bool, clearStore bool) (Snapshot, bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if cond != nil && !cond(m.snapshot) {
		snap := m.snapshot.clone()
		m.mu.Unlock()
		return snap, false
	}
	if clearStore {
		m.store.Remove(kvstore.KeyAuthToken)
		m.store.Remove(kvstore.KeyAuthUser)
	}
	changed := m.snapshot.State != StateAnonymous
	gen := m.snapshot.Generation
	if m.snapshot.State == StateAuthenticated {
		gen++
	}
	m.snapshot = Snapshot{State: StateAnonymous, Generation: gen}
	snap := m.snapshot.clone()
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
	return snap, true
}

// notify must be called with notifyMu held
func (m *Manager) notify(snap Snapshot) {
	for _, fn := range m.subscribers {
		fn(snap.clone())
	}
}

func (m *Manager) acquire(op string) (func(), error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, errors.Wrapf(apperrors.ErrBusy, "[Manager.%s]", op)
	}
	return func() { m.busy.Store(false) }, nil
}
