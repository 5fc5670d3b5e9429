package selection_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/api/apifake"
	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/kvstore"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "trader@example.com"
	testPassword = "Password123"
)

type testFixture struct {
	backend  *apifake.Backend
	store    *kvstore.Store
	sessions *session.Manager
	inbox    *selection.Inbox
	user     *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := apifake.New()
	user, err := backend.AddUser(users.User{Email: testEmail, FirstName: "Tess", LastName: "Trader", Role: users.RoleClient}, testPassword)
	require.NoError(t, err)

	backend.SetPlatforms(user.ID,
		api.Platform{ID: "P1", Code: "binance", ConnectionType: api.ConnectionAPIKey, Status: api.StatusConnected, IsDefault: true},
		api.Platform{ID: "P2", Code: "kraken", ConnectionType: api.ConnectionAPIKey, Status: api.StatusPending},
		api.Platform{ID: "P3", Code: "ibkr", ConnectionType: api.ConnectionOAuth, Status: api.StatusConnected},
	)
	backend.SetAccounts("P1", api.Account{ID: "A1", IsDefault: true}, api.Account{ID: "A2"})
	backend.SetAccounts("P2", api.Account{ID: "B1"}, api.Account{ID: "B2", IsDefault: true})

	store := kvstore.NewMemory()
	return &testFixture{
		backend:  backend,
		store:    store,
		sessions: session.New(backend, store),
		inbox:    &selection.Inbox{},
		user:     user,
	}
}

func (f *testFixture) newSelection(t *testing.T) *selection.Context {
	t.Helper()
	sel := selection.New(f.backend, f.sessions, f.store, selection.WithNotifier(f.inbox))
	t.Cleanup(sel.Close)
	return sel
}

func (f *testFixture) login(t *testing.T) session.Snapshot {
	t.Helper()
	snap, err := f.sessions.Login(context.Background(), users.Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return snap
}

func (f *testFixture) persisted(key string) string {
	v, _ := f.store.GetString(key)
	return v
}

func TestContext_WaitsForSession(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)

	sel.Wait()
	require.Zero(t, f.backend.Calls(apifake.MethodListPlatforms))
	require.ErrorIs(t, sel.SelectPlatform("P1"), apperrors.ErrNotAuthenticated)
	require.ErrorIs(t, sel.RefreshPlatforms(context.Background()), apperrors.ErrNotAuthenticated)
}

func TestContext_LoadsOnLogin(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)

	f.login(t)
	sel.Wait()

	v := sel.View()
	require.Len(t, v.Platforms, 3)
	require.Equal(t, "P1", v.PlatformID)
	require.Equal(t, api.StatusConnected, v.Status)
	require.Equal(t, api.ConnectionAPIKey, v.ConnectionType)
	require.Equal(t, "A1", v.AccountID)
	require.Len(t, v.Accounts, 2)
	require.False(t, v.LoadingPlatforms)
	require.False(t, v.LoadingAccounts)

	require.Equal(t, "P1", f.persisted(kvstore.KeySelectedPlatform))
	require.Equal(t, "A1", f.persisted(kvstore.KeySelectedAccount))
}

func TestContext_StaleAccountReconciliation(t *testing.T) {
	tests := []struct {
		name     string
		accounts []api.Account
		want     string
	}{
		{"default", []api.Account{{ID: "Y", IsDefault: true}, {ID: "Z"}}, "Y"},
		{"first", []api.Account{{ID: "Y"}, {ID: "Z"}}, "Y"},
		{"empty", []api.Account{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.backend.SetAccounts("P1", tt.accounts...)
			f.store.Set(kvstore.KeySelectedPlatform, "P1")
			f.store.Set(kvstore.KeySelectedAccount, "X")

			sel := f.newSelection(t)
			f.login(t)
			sel.Wait()

			v := sel.View()
			require.Equal(t, "P1", v.PlatformID)
			require.Equal(t, tt.want, v.AccountID)

			persisted, ok := f.store.GetString(kvstore.KeySelectedAccount)
			if tt.want == "" {
				require.False(t, ok, "no id may be persisted for an empty collection")
			} else {
				require.Equal(t, tt.want, persisted)
			}
		})
	}
}

func TestContext_SelectPlatform(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()
	require.NoError(t, sel.SelectAccount("A2"))

	t.Run("clears the account before the fetch lands", func(t *testing.T) {
		gate := f.backend.Gate(apifake.MethodListAccounts, "P2")
		require.NoError(t, sel.SelectPlatform("P2"))

		v := sel.View()
		require.Equal(t, "P2", v.PlatformID)
		require.Empty(t, v.AccountID)
		require.Empty(t, v.Accounts)
		require.True(t, v.LoadingAccounts)
		require.Equal(t, api.StatusPending, v.Status)
		require.Equal(t, "P2", f.persisted(kvstore.KeySelectedPlatform))
		require.Empty(t, f.persisted(kvstore.KeySelectedAccount))

		// Nothing is selectable while the list reloads
		require.ErrorIs(t, sel.SelectAccount("B1"), apperrors.ErrNotFound)

		gate.Release()
		sel.Wait()
		v = sel.View()
		require.Equal(t, "B2", v.AccountID)
		require.False(t, v.LoadingAccounts)
	})

	t.Run("reselecting is a no-op", func(t *testing.T) {
		calls := f.backend.Calls(apifake.MethodListAccounts)
		before := sel.View()

		require.NoError(t, sel.SelectPlatform("P2"))
		require.NoError(t, sel.SelectPlatform("P2"))
		sel.Wait()

		require.Equal(t, calls, f.backend.Calls(apifake.MethodListAccounts))
		require.Equal(t, before, sel.View())
	})

	t.Run("unknown platform", func(t *testing.T) {
		before := sel.View()
		require.ErrorIs(t, sel.SelectPlatform("P9"), apperrors.ErrNotFound)
		require.Equal(t, before, sel.View())
		require.Equal(t, "P2", f.persisted(kvstore.KeySelectedPlatform))
	})
}

func TestContext_StaleAccountFetchDiscarded(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()

	gate := f.backend.Gate(apifake.MethodListAccounts, "P2")
	require.NoError(t, sel.SelectPlatform("P2"))
	<-gate.Entered()
	require.NoError(t, sel.SelectPlatform("P3"))

	require.Eventually(t, func() bool {
		return !sel.View().LoadingAccounts
	}, time.Second, 5*time.Millisecond)

	gate.Release()
	sel.Wait()

	v := sel.View()
	require.Equal(t, "P3", v.PlatformID)
	require.Empty(t, v.Accounts, "P2 accounts must not land under P3")
	require.Empty(t, v.AccountID)
	require.Empty(t, f.persisted(kvstore.KeySelectedAccount))
}

func TestContext_SelectAccount(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()

	require.ErrorIs(t, sel.SelectAccount("B1"), apperrors.ErrNotFound)
	require.Equal(t, "A1", sel.View().AccountID)
	require.Equal(t, "A1", f.persisted(kvstore.KeySelectedAccount))

	require.NoError(t, sel.SelectAccount("A2"))
	require.Equal(t, "A2", sel.View().AccountID)
	require.Equal(t, "A2", f.persisted(kvstore.KeySelectedAccount))
}

func TestContext_RoundTripPersistence(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()
	require.NoError(t, sel.SelectAccount("A2"))
	sel.Close()

	// A new process over the same store
	sessions := session.New(f.backend, f.store)
	reloaded := selection.New(f.backend, sessions, f.store)
	t.Cleanup(reloaded.Close)

	snap, err := sessions.Bootstrap(context.Background())
	require.NoError(t, err)
	require.True(t, snap.IsAuthenticated())
	reloaded.Wait()

	v := reloaded.View()
	require.Equal(t, "P1", v.PlatformID)
	require.Equal(t, "A2", v.AccountID)
}

func TestContext_RefreshPlatforms(t *testing.T) {
	ctx := context.Background()

	t.Run("failure keeps last known good", func(t *testing.T) {
		f := setupTestFixture(t)
		sel := f.newSelection(t)
		f.login(t)
		sel.Wait()
		before := sel.View()

		f.backend.FailNext(apifake.MethodListPlatforms, api.ErrNetworkFailure)
		err := sel.RefreshPlatforms(ctx)
		require.ErrorIs(t, err, apperrors.ErrNetworkFailure)

		v := sel.View()
		require.Equal(t, before.Platforms, v.Platforms)
		require.Equal(t, before.PlatformID, v.PlatformID)
		require.False(t, v.LoadingPlatforms)
		require.NotEmpty(t, v.PlatformsError)

		n, ok := f.inbox.Last()
		require.True(t, ok)
		assert.Equal(t, "platforms", n.Source)
		f.inbox.Dismiss()
		_, ok = f.inbox.Last()
		require.False(t, ok)

		require.NoError(t, sel.RefreshPlatforms(ctx))
		require.Empty(t, sel.View().PlatformsError)
	})

	t.Run("removed platform falls back and cascades", func(t *testing.T) {
		f := setupTestFixture(t)
		sel := f.newSelection(t)
		f.login(t)
		sel.Wait()

		f.backend.SetPlatforms(f.user.ID,
			api.Platform{ID: "P2", Code: "kraken", Status: api.StatusConnected},
			api.Platform{ID: "P3", Code: "ibkr", Status: api.StatusConnected, IsDefault: true},
		)
		require.NoError(t, sel.RefreshPlatforms(ctx))
		v := sel.View()
		require.Equal(t, "P3", v.PlatformID)
		require.Empty(t, v.AccountID)

		sel.Wait()
		require.Equal(t, "P3", f.persisted(kvstore.KeySelectedPlatform))
	})

	t.Run("unchanged platform keeps accounts", func(t *testing.T) {
		f := setupTestFixture(t)
		sel := f.newSelection(t)
		f.login(t)
		sel.Wait()
		calls := f.backend.Calls(apifake.MethodListAccounts)

		require.NoError(t, sel.RefreshPlatforms(ctx))
		sel.Wait()
		require.Equal(t, calls, f.backend.Calls(apifake.MethodListAccounts))
		require.Equal(t, "A1", sel.View().AccountID)
	})

	t.Run("empty list clears selection", func(t *testing.T) {
		f := setupTestFixture(t)
		sel := f.newSelection(t)
		f.login(t)
		sel.Wait()

		f.backend.SetPlatforms(f.user.ID)
		require.NoError(t, sel.RefreshPlatforms(ctx))
		sel.Wait()

		v := sel.View()
		require.Empty(t, v.PlatformID)
		require.Empty(t, v.AccountID)
		require.Empty(t, f.persisted(kvstore.KeySelectedPlatform))
		require.Empty(t, f.persisted(kvstore.KeySelectedAccount))
	})
}

func TestContext_RefreshAccounts(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()
	require.NoError(t, sel.SelectAccount("A2"))

	f.backend.FailNext(apifake.MethodListAccounts, api.ErrNetworkFailure)
	require.ErrorIs(t, sel.RefreshAccounts(ctx), apperrors.ErrNetworkFailure)
	v := sel.View()
	require.Len(t, v.Accounts, 2)
	require.Equal(t, "A2", v.AccountID)
	require.NotEmpty(t, v.AccountsError)

	f.backend.SetAccounts("P1", api.Account{ID: "A3"}, api.Account{ID: "A4", IsDefault: true})
	require.NoError(t, sel.RefreshAccounts(ctx))
	require.Equal(t, "A4", sel.View().AccountID)
	require.Equal(t, "A4", f.persisted(kvstore.KeySelectedAccount))
}

func TestContext_UnauthorizedEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	snap := f.login(t)
	sel.Wait()

	require.NoError(t, f.backend.Revoke(snap.Token))
	err := sel.RefreshPlatforms(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.Equal(t, session.StateAnonymous, f.sessions.Snapshot().State)
	v := sel.View()
	require.Empty(t, v.PlatformID)
	require.Empty(t, v.Platforms)
	_, ok := f.inbox.Last()
	require.False(t, ok, "unauthorized is not a transient notification")
}

func TestContext_LogoutClearsSelection(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)
	f.login(t)
	sel.Wait()

	f.sessions.Logout()

	v := sel.View()
	require.Empty(t, v.PlatformID)
	require.Empty(t, v.AccountID)
	require.Empty(t, v.Platforms)
	require.Empty(t, v.Accounts)
	require.Empty(t, f.persisted(kvstore.KeySelectedPlatform))
	require.Empty(t, f.persisted(kvstore.KeySelectedAccount))
	require.ErrorIs(t, sel.SelectAccount("A1"), apperrors.ErrNotAuthenticated)
}

func TestContext_FetchFromEndedSessionDropped(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)

	gate := f.backend.Gate(apifake.MethodListPlatforms, "")
	f.login(t)
	<-gate.Entered()
	f.sessions.Logout()
	gate.Release()
	sel.Wait()

	require.Empty(t, sel.View().Platforms)
	require.Empty(t, f.persisted(kvstore.KeySelectedPlatform))
}

func TestContext_SelectPlatformWhileLoading(t *testing.T) {
	f := setupTestFixture(t)
	sel := f.newSelection(t)

	gate := f.backend.Gate(apifake.MethodListPlatforms, "")
	f.login(t)
	<-gate.Entered()

	err := sel.SelectPlatform("P2")
	require.ErrorIs(t, err, selection.ErrPlatformsLoading)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Empty(t, sel.View().PlatformID)

	gate.Release()
	sel.Wait()

	require.NoError(t, sel.SelectPlatform("P2"))
	sel.Wait()
	require.Equal(t, "P2", sel.View().PlatformID)

	err = sel.SelectPlatform("P9")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NotErrorIs(t, err, selection.ErrPlatformsLoading)
}
