// Package selection keeps the active platform and account consistent with
// both the operator's choices and what the backend currently returns.
//
// Every fetch is tagged with the session generation and, for accounts, the
// platform it targeted. A result whose tag no longer matches the current
// state is dropped, so a slow superseded fetch can never overwrite newer
// state.
package selection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-platform-console/api"
	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/kvstore"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrPlatformsLoading is returned, together with ErrNotFound, when a platform
// is selected before the platform list has landed. The call may succeed once
// the list is loaded.
var ErrPlatformsLoading = errors.New("platform list is loading")

// SessionSource is the part of session.Manager the selection depends on
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
	ReportUnauthorized(token string) bool
}

// fetchTag identifies the state a fetch was started for
type fetchTag struct {
	sessionGen uint64
	token      string
	platformID string // accounts only
	gen        uint64
}

type Context struct {
	lister   api.Lister
	sessions SessionSource
	store    *kvstore.Store
	notifier Notifier
	logger   zerolog.Logger
	baseCtx  context.Context
	nowFunc  func() time.Time

	mu          sync.Mutex
	view        View
	sessionGen  uint64
	token       string
	platformGen uint64
	accountGen  uint64

	wg          sync.WaitGroup
	unsubscribe func()
}

type Option func(*Context)

// WithContext sets the context used by fetches the selection starts itself
func WithContext(ctx context.Context) Option {
	return func(c *Context) {
		c.baseCtx = ctx
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(c *Context) {
		c.notifier = notifier
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Context) {
		c.nowFunc = now
	}
}

// New subscribes the selection to sessions and applies the current session
// straight away.
func New(lister api.Lister, sessions SessionSource, store *kvstore.Store, options ...Option) *Context {
	c := &Context{
		lister:   lister,
		sessions: sessions,
		store:    store,
		logger:   log.Logger,
		baseCtx:  context.Background(),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "selection").Logger()
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}

	c.unsubscribe = sessions.Subscribe(c.onSession)
	c.onSession(sessions.Snapshot())
	return c
}

// View returns a copy of the current selection
func (c *Context) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Wait blocks until the fetches the selection started itself have landed
func (c *Context) Wait() {
	c.wg.Wait()
}

// Close detaches from the session and waits for background fetches
func (c *Context) Close() {
	c.unsubscribe()
	c.Wait()
}

// SelectPlatform makes id the active platform. The account selection and
// account list are cleared before it returns; the new account list is
// fetched in the background. Selecting the current platform is a no-op.
func (c *Context) SelectPlatform(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[Context.SelectPlatform]")
	}
	if id == c.view.PlatformID && id != "" {
		return nil
	}
	if !contains(c.view.Platforms, id) {
		if c.view.LoadingPlatforms {
			return fmt.Errorf("[Context.SelectPlatform] platform %q: %w: %w", id, ErrPlatformsLoading, apperrors.ErrNotFound)
		}
		return errors.Wrapf(apperrors.ErrNotFound, "[Context.SelectPlatform] platform %q", id)
	}

	c.view.PlatformID = id
	c.view.derive()
	c.clearAccountsLocked()
	c.store.Set(kvstore.KeySelectedPlatform, id)
	c.store.Remove(kvstore.KeySelectedAccount)
	c.logger.Debug().Str("platform_id", id).Msg("platform selected")

	c.startAccountFetchLocked("")
	return nil
}

// SelectAccount makes id the active account. id must be in the loaded
// account list; while the list is reloading nothing is selectable.
func (c *Context) SelectAccount(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[Context.SelectAccount]")
	}
	if !contains(c.view.Accounts, id) {
		return errors.Wrapf(apperrors.ErrNotFound, "[Context.SelectAccount] account %q", id)
	}
	if id == c.view.AccountID {
		return nil
	}

	c.view.AccountID = id
	c.store.Set(kvstore.KeySelectedAccount, id)
	c.logger.Debug().Str("account_id", id).Msg("account selected")
	return nil
}

// RefreshPlatforms fetches the platform list for the current session. On
// failure the previous list stays in place and the error is returned.
func (c *Context) RefreshPlatforms(ctx context.Context) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[Context.RefreshPlatforms]")
	}
	tag, hint := c.beginPlatformFetchLocked()
	c.mu.Unlock()

	return c.loadPlatforms(ctx, tag, hint)
}

// RefreshAccounts fetches the accounts of the selected platform. On failure
// the previous list stays in place and the error is returned.
func (c *Context) RefreshAccounts(ctx context.Context) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[Context.RefreshAccounts]")
	}
	if c.view.PlatformID == "" {
		c.mu.Unlock()
		return errors.Wrap(apperrors.ErrNotFound, "[Context.RefreshAccounts] no platform selected")
	}
	hint := c.view.AccountID
	if hint == "" {
		hint, _ = c.store.GetString(kvstore.KeySelectedAccount)
	}
	tag := c.beginAccountFetchLocked()
	c.mu.Unlock()

	return c.loadAccounts(ctx, tag, hint)
}

func (c *Context) onSession(snap session.Snapshot) {
	switch snap.State {
	case session.StateAuthenticated:
		c.mu.Lock()
		defer c.mu.Unlock()
		if snap.Generation < c.sessionGen || (snap.Generation == c.sessionGen && snap.Token == c.token) {
			return
		}
		c.sessionGen = snap.Generation
		c.token = snap.Token
		c.view = View{}
		c.logger.Debug().Uint64("generation", snap.Generation).Msg("session authenticated, loading platforms")

		tag, hint := c.beginPlatformFetchLocked()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			_ = c.loadPlatforms(c.baseCtx, tag, hint)
		}()

	case session.StateAnonymous:
		c.mu.Lock()
		defer c.mu.Unlock()
		if snap.Generation < c.sessionGen {
			return
		}
		c.sessionGen = snap.Generation
		c.token = ""
		c.platformGen++
		c.accountGen++
		c.view = View{}
		c.store.Remove(kvstore.KeySelectedPlatform)
		c.store.Remove(kvstore.KeySelectedAccount)
	}
}

func (c *Context) beginPlatformFetchLocked() (fetchTag, string) {
	c.platformGen++
	c.view.LoadingPlatforms = true
	hint := c.view.PlatformID
	if hint == "" {
		hint, _ = c.store.GetString(kvstore.KeySelectedPlatform)
	}
	return fetchTag{sessionGen: c.sessionGen, token: c.token, gen: c.platformGen}, hint
}

func (c *Context) beginAccountFetchLocked() fetchTag {
	c.accountGen++
	c.view.LoadingAccounts = true
	return fetchTag{sessionGen: c.sessionGen, token: c.token, platformID: c.view.PlatformID, gen: c.accountGen}
}

// startAccountFetchLocked refetches accounts for the selected platform in
// the background
func (c *Context) startAccountFetchLocked(hint string) {
	if c.view.PlatformID == "" {
		c.accountGen++
		c.view.LoadingAccounts = false
		c.store.Remove(kvstore.KeySelectedAccount)
		return
	}
	tag := c.beginAccountFetchLocked()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.loadAccounts(c.baseCtx, tag, hint)
	}()
}

func (c *Context) clearAccountsLocked() {
	c.view.AccountID = ""
	c.view.Accounts = nil
	c.view.AccountsError = ""
}

func (c *Context) loadPlatforms(ctx context.Context, tag fetchTag, hint string) error {
	platforms, err := c.lister.ListPlatforms(ctx, tag.token)

	c.mu.Lock()
	if !c.currentPlatformTagLocked(tag) {
		c.mu.Unlock()
		c.logger.Debug().Uint64("gen", tag.gen).Msg("stale platform list dropped")
		return nil
	}
	c.view.LoadingPlatforms = false

	if err != nil {
		c.view.PlatformsError = err.Error()
		c.mu.Unlock()
		return c.fetchFailed("platforms", tag, errors.Wrap(err, "[Context.RefreshPlatforms]"))
	}

	c.view.PlatformsError = ""
	c.view.Platforms = platforms
	if c.view.PlatformID != "" {
		hint = c.view.PlatformID
	}
	resolved := Reconcile(platforms, hint)
	changed := resolved != c.view.PlatformID
	c.view.PlatformID = resolved
	c.view.derive()
	c.mirrorLocked(kvstore.KeySelectedPlatform, resolved)

	if changed {
		accountHint, _ := c.store.GetString(kvstore.KeySelectedAccount)
		c.clearAccountsLocked()
		c.startAccountFetchLocked(accountHint)
	}
	c.mu.Unlock()

	c.logger.Debug().Int("count", len(platforms)).Str("platform_id", resolved).Msg("platforms loaded")
	return nil
}

func (c *Context) loadAccounts(ctx context.Context, tag fetchTag, hint string) error {
	accounts, err := c.lister.ListAccounts(ctx, tag.token, tag.platformID)

	c.mu.Lock()
	if !c.currentAccountTagLocked(tag) {
		c.mu.Unlock()
		c.logger.Debug().Str("platform_id", tag.platformID).Uint64("gen", tag.gen).Msg("stale account list dropped")
		return nil
	}
	c.view.LoadingAccounts = false

	if err != nil {
		c.view.AccountsError = err.Error()
		c.mu.Unlock()
		return c.fetchFailed("accounts", tag, errors.Wrap(err, "[Context.RefreshAccounts]"))
	}

	c.view.AccountsError = ""
	c.view.Accounts = accounts
	resolved := Reconcile(accounts, hint)
	c.view.AccountID = resolved
	c.mirrorLocked(kvstore.KeySelectedAccount, resolved)
	c.mu.Unlock()

	c.logger.Debug().Int("count", len(accounts)).Str("account_id", resolved).Msg("accounts loaded")
	return nil
}

// fetchFailed runs without the lock held. Unauthorized ends the session,
// anything else becomes a notification.
func (c *Context) fetchFailed(source string, tag fetchTag, err error) error {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		c.sessions.ReportUnauthorized(tag.token)
		return err
	}
	c.notifier.Notify(Notification{
		Source:  source,
		Message: "could not refresh " + source + ", showing last known data",
		At:      c.nowFunc(),
		Err:     err,
	})
	return err
}

func (c *Context) currentPlatformTagLocked(tag fetchTag) bool {
	return tag.sessionGen == c.sessionGen && tag.token == c.token && tag.gen == c.platformGen
}

func (c *Context) currentAccountTagLocked(tag fetchTag) bool {
	return tag.sessionGen == c.sessionGen && tag.token == c.token &&
		tag.platformID == c.view.PlatformID && tag.gen == c.accountGen
}

// mirrorLocked writes a resolved id to the store, never a missing one
func (c *Context) mirrorLocked(key, id string) {
	if id == "" {
		c.store.Remove(key)
		return
	}
	c.store.Set(key, id)
}
