// Package apifake is an in-memory implementation of the console's backend
// contract. It serves tests directly as an api.Client and over HTTP through
// Handler, and backs the CLI's demo mode.
package apifake

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/users"
	fakeuserrepo "github.com/jrsteele09/go-platform-console/users/repofake"
	"github.com/pkg/errors"
)

// Method names used by the test hooks
const (
	MethodFetchCurrentUser = "FetchCurrentUser"
	MethodLogin            = "Login"
	MethodRegister         = "Register"
	MethodListPlatforms    = "ListPlatforms"
	MethodListAccounts     = "ListAccounts"
)

var _ api.Client = (*Backend)(nil)

type gateKey struct {
	method string
	key    string
}

// Gate holds calls to one method until released
type Gate struct {
	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
	closeOnce sync.Once
}

// Entered is closed once the first call reaches the gate
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets every held call continue
func (g *Gate) Release() {
	g.closeOnce.Do(func() { close(g.release) })
}

func (g *Gate) wait(ctx context.Context) error {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return errors.Wrap(api.ErrNetworkFailure, ctx.Err().Error())
	}
}

type Backend struct {
	userRepo users.UserRepo
	tokens   *tokenIssuer
	nowFunc  func() time.Time
	tokenTTL time.Duration

	mu        sync.Mutex
	platforms map[string][]api.Platform // user id to linked platforms
	accounts  map[string][]api.Account  // platform id to accounts
	gates     map[gateKey]*Gate
	failures  map[string][]error
	calls     map[string]int
}

type Option func(*Backend)

func WithSigningKey(key []byte) Option {
	return func(b *Backend) {
		b.tokens.key = key
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tokenTTL = ttl
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

func WithUserRepo(repo users.UserRepo) Option {
	return func(b *Backend) {
		b.userRepo = repo
	}
}

func New(options ...Option) *Backend {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	b := &Backend{
		userRepo:  fakeuserrepo.NewFakeUserRepo(),
		nowFunc:   time.Now,
		tokenTTL:  time.Hour,
		platforms: make(map[string][]api.Platform),
		accounts:  make(map[string][]api.Account),
		gates:     make(map[gateKey]*Gate),
		failures:  make(map[string][]error),
		calls:     make(map[string]int),
	}
	b.tokens = newTokenIssuer(key, b.tokenTTL, func() time.Time { return b.nowFunc() })
	for _, opt := range options {
		opt(b)
	}
	b.tokens.ttl = b.tokenTTL
	return b
}

// AddUser stores a user with a bcrypt hash of password
func (b *Backend) AddUser(user users.User, password string) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "Backend.AddUser HashPassword")
	}
	u := user.Clone()
	if err := b.userRepo.Upsert(u, hash); err != nil {
		return nil, errors.Wrap(err, "Backend.AddUser Upsert")
	}
	return u.Clone(), nil
}

// SetPlatforms replaces the platforms linked to a user
func (b *Backend) SetPlatforms(userID string, platforms ...api.Platform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.platforms[userID] = append([]api.Platform(nil), platforms...)
}

// SetAccounts replaces the accounts stored under a platform link
func (b *Backend) SetAccounts(platformID string, accounts ...api.Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]api.Account, len(accounts))
	for i, a := range accounts {
		a.PlatformID = platformID
		stored[i] = a
	}
	b.accounts[platformID] = stored
}

// IssueToken signs a token for a user, ttl may be negative to get an expired one
func (b *Backend) IssueToken(userID string, ttl time.Duration) (string, error) {
	u, err := b.userRepo.GetByID(userID)
	if err != nil {
		return "", errors.Wrap(err, "Backend.IssueToken GetByID")
	}
	return b.tokens.issue(u, ttl)
}

// Revoke invalidates a token before its expiry
func (b *Backend) Revoke(token string) error {
	return b.tokens.revoke(token)
}

// Gate holds the next calls of method until the returned gate is released.
// For ListAccounts key is a platform id; an empty key matches every call.
func (b *Backend) Gate(method, key string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.gates[gateKey{method: method, key: key}] = g
	b.mu.Unlock()
	return g
}

// FailNext makes the next call of method return err
func (b *Backend) FailNext(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method] = append(b.failures[method], err)
}

// Calls reports how many times method has been invoked
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) FetchCurrentUser(ctx context.Context, token string) (*users.User, error) {
	if err := b.enter(ctx, MethodFetchCurrentUser, ""); err != nil {
		return nil, err
	}
	userID, err := b.tokens.verify(token)
	if err != nil {
		return nil, err
	}
	u, err := b.userRepo.GetByID(userID)
	if err != nil {
		return nil, errors.Wrap(api.ErrUnauthorized, "user no longer exists")
	}
	return u, nil
}

func (b *Backend) Login(ctx context.Context, credentials users.Credentials) (*api.AuthResult, error) {
	if err := b.enter(ctx, MethodLogin, ""); err != nil {
		return nil, err
	}
	if err := users.ValidateCredentials(credentials); err != nil {
		return nil, err
	}
	u, hash, err := b.userRepo.GetByEmail(credentials.Email)
	if err != nil || !users.CheckPasswordHash(credentials.Password, hash) {
		return nil, errors.Wrap(api.ErrInvalidCredentials, "invalid email or password")
	}
	return b.authResult(u)
}

func (b *Backend) Register(ctx context.Context, registration users.Registration) (*api.AuthResult, error) {
	if err := b.enter(ctx, MethodRegister, ""); err != nil {
		return nil, err
	}
	if err := users.ValidateRegistration(registration); err != nil {
		return nil, err
	}
	if _, _, err := b.userRepo.GetByEmail(registration.Email); err == nil {
		return nil, errors.Wrap(api.ErrConflict, "email already registered")
	}
	u, err := b.AddUser(users.User{
		Email:     strings.TrimSpace(registration.Email),
		FirstName: strings.TrimSpace(registration.FirstName),
		LastName:  strings.TrimSpace(registration.LastName),
		Role:      users.RoleClient,
	}, registration.Password)
	if err != nil {
		return nil, err
	}
	return b.authResult(u)
}

func (b *Backend) ListPlatforms(ctx context.Context, token string) ([]api.Platform, error) {
	if err := b.enter(ctx, MethodListPlatforms, ""); err != nil {
		return nil, err
	}
	userID, err := b.tokens.verify(token)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Platform{}, b.platforms[userID]...), nil
}

func (b *Backend) ListAccounts(ctx context.Context, token, platformID string) ([]api.Account, error) {
	if err := b.enter(ctx, MethodListAccounts, platformID); err != nil {
		return nil, err
	}
	userID, err := b.tokens.verify(token)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.platforms[userID] {
		if p.ID == platformID {
			return append([]api.Account{}, b.accounts[platformID]...), nil
		}
	}
	return nil, errors.Wrapf(api.ErrNotFound, "platform %s", platformID)
}

func (b *Backend) authResult(u *users.User) (*api.AuthResult, error) {
	token, err := b.tokens.issue(u, b.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &api.AuthResult{Token: token, User: u.Clone()}, nil
}

// enter counts the call, applies a queued failure and waits on a matching gate
func (b *Backend) enter(ctx context.Context, method, key string) error {
	b.mu.Lock()
	b.calls[method]++

	var failure error
	if queued := b.failures[method]; len(queued) > 0 {
		failure = queued[0]
		b.failures[method] = queued[1:]
	}

	gate, ok := b.gates[gateKey{method: method, key: key}]
	if !ok {
		gate, ok = b.gates[gateKey{method: method}]
	}
	b.mu.Unlock()

	if ok {
		if err := gate.wait(ctx); err != nil {
			return err
		}
	}
	return failure
}
