package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/api/apifake"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend  *apifake.Backend
	server   *httptest.Server
	client   *api.HTTPClient
	failures atomic.Int32 // 503s to serve before reaching the backend
	hits     atomic.Int32
	ids      chan string
}

func setupTestFixture(t *testing.T, options ...api.HTTPClientOption) *testFixture {
	t.Helper()

	backend, err := apifake.NewDemo()
	require.NoError(t, err)

	f := &testFixture{backend: backend, ids: make(chan string, 64)}
	handler := backend.Handler()
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		select {
		case f.ids <- r.Header.Get("X-Request-ID"):
		default:
		}
		if f.failures.Load() > 0 {
			f.failures.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	options = append([]api.HTTPClientOption{
		api.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		api.WithTimeout(5 * time.Second),
	}, options...)
	f.client, err = api.NewHTTPClient(f.server.URL, options...)
	require.NoError(t, err)
	return f
}

func (f *testFixture) login(t *testing.T, email string) *api.AuthResult {
	t.Helper()
	result, err := f.client.Login(context.Background(), users.Credentials{Email: email, Password: apifake.DemoPassword})
	require.NoError(t, err)
	return result
}

func TestNewHTTPClient_InvalidBaseURL(t *testing.T) {
	_, err := api.NewHTTPClient("not a url")
	require.Error(t, err)
}

func TestHTTPClient_Login(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		result := f.login(t, apifake.DemoClientEmail)
		require.NotEmpty(t, result.Token)
		require.NotNil(t, result.User)
		assert.Equal(t, apifake.DemoClientEmail, result.User.Email)
		assert.Equal(t, users.RoleClient, result.User.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.client.Login(ctx, users.Credentials{Email: apifake.DemoClientEmail, Password: "Wrong1234"})
		require.ErrorIs(t, err, api.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.client.Login(ctx, users.Credentials{Email: "nobody@example.com", Password: apifake.DemoPassword})
		require.ErrorIs(t, err, api.ErrInvalidCredentials)
	})
}

func TestHTTPClient_Register(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	registration := users.Registration{
		Email:     "new.user@example.com",
		Password:  "Password123",
		FirstName: "New",
		LastName:  "User",
	}

	result, err := f.client.Register(ctx, registration)
	require.NoError(t, err)
	assert.Equal(t, users.RoleClient, result.User.Role)

	_, err = f.client.Register(ctx, registration)
	require.ErrorIs(t, err, api.ErrConflict)

	registration.Email = "weak@example.com"
	registration.Password = "weak"
	_, err = f.client.Register(ctx, registration)
	require.ErrorIs(t, err, api.ErrValidation)
}

func TestHTTPClient_FetchCurrentUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	result := f.login(t, apifake.DemoAdminEmail)

	u, err := f.client.FetchCurrentUser(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, u.ID)
	assert.True(t, u.IsAdmin())

	_, err = f.client.FetchCurrentUser(ctx, "garbage")
	require.ErrorIs(t, err, api.ErrUnauthorized)

	require.NoError(t, f.backend.Revoke(result.Token))
	_, err = f.client.FetchCurrentUser(ctx, result.Token)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestHTTPClient_Lists(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	token := f.login(t, apifake.DemoClientEmail).Token

	platforms, err := f.client.ListPlatforms(ctx, token)
	require.NoError(t, err)
	require.Len(t, platforms, 3)
	assert.Equal(t, "binance", platforms[0].Code)
	assert.True(t, platforms[0].IsDefault)

	accounts, err := f.client.ListAccounts(ctx, token, "plat-binance")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "plat-binance", accounts[0].PlatformID)

	accounts, err = f.client.ListAccounts(ctx, token, "plat-ibkr")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = f.client.ListAccounts(ctx, token, "plat-unknown")
	require.ErrorIs(t, err, api.ErrNotFound)

	_, err = f.client.ListPlatforms(ctx, "")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestHTTPClient_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("reads retry server errors", func(t *testing.T) {
		f := setupTestFixture(t, api.WithMaxTries(3))
		token := f.login(t, apifake.DemoClientEmail).Token
		f.hits.Store(0)
		f.failures.Store(2)

		platforms, err := f.client.ListPlatforms(ctx, token)
		require.NoError(t, err)
		require.Len(t, platforms, 3)
		assert.EqualValues(t, 3, f.hits.Load())
	})

	t.Run("reads give up after max tries", func(t *testing.T) {
		f := setupTestFixture(t, api.WithMaxTries(2))
		token := f.login(t, apifake.DemoClientEmail).Token
		f.hits.Store(0)
		f.failures.Store(5)

		_, err := f.client.ListPlatforms(ctx, token)
		require.ErrorIs(t, err, api.ErrNetworkFailure)
		assert.EqualValues(t, 2, f.hits.Load())
	})

	t.Run("writes are never retried", func(t *testing.T) {
		f := setupTestFixture(t, api.WithMaxTries(3))
		f.failures.Store(1)

		_, err := f.client.Login(ctx, users.Credentials{Email: apifake.DemoClientEmail, Password: apifake.DemoPassword})
		require.ErrorIs(t, err, api.ErrNetworkFailure)
		assert.EqualValues(t, 1, f.hits.Load())
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		f := setupTestFixture(t, api.WithMaxTries(3))

		_, err := f.client.ListPlatforms(ctx, "garbage")
		require.ErrorIs(t, err, api.ErrUnauthorized)
		assert.EqualValues(t, 1, f.hits.Load())
	})
}

func TestHTTPClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := api.NewHTTPClient(url,
		api.WithMaxTries(2),
		api.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)

	_, err = client.FetchCurrentUser(context.Background(), "token")
	require.ErrorIs(t, err, api.ErrNetworkFailure)
}

func TestHTTPClient_RequestID(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, apifake.DemoClientEmail).Token
	_, err := f.client.ListPlatforms(context.Background(), token)
	require.NoError(t, err)

	first := <-f.ids
	second := <-f.ids
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)
}

func TestHTTPClient_Cache(t *testing.T) {
	f := setupTestFixture(t, api.WithCache(api.MemoryCache))
	ctx := context.Background()
	clientToken := f.login(t, apifake.DemoClientEmail).Token
	newToken := f.login(t, apifake.DemoNewEmail).Token

	_, err := f.client.ListPlatforms(ctx, clientToken)
	require.NoError(t, err)
	platforms, err := f.client.ListPlatforms(ctx, clientToken)
	require.NoError(t, err)
	require.Len(t, platforms, 3)
	assert.Equal(t, 1, f.backend.Calls(apifake.MethodListPlatforms))

	// Vary: Authorization keeps users apart
	platforms, err = f.client.ListPlatforms(ctx, newToken)
	require.NoError(t, err)
	assert.Empty(t, platforms)
	assert.Equal(t, 2, f.backend.Calls(apifake.MethodListPlatforms))
}

func TestErrorFromResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   api.ErrorResponse
		want   error
	}{
		{"code wins over status", http.StatusBadRequest, api.ErrorResponse{Error: api.CodeConflict}, api.ErrConflict},
		{"401 fallback", http.StatusUnauthorized, api.ErrorResponse{}, api.ErrUnauthorized},
		{"403 fallback", http.StatusForbidden, api.ErrorResponse{}, api.ErrUnauthorized},
		{"409 fallback", http.StatusConflict, api.ErrorResponse{}, api.ErrConflict},
		{"422 fallback", http.StatusUnprocessableEntity, api.ErrorResponse{}, api.ErrValidation},
		{"404 fallback", http.StatusNotFound, api.ErrorResponse{}, api.ErrNotFound},
		{"unknown status", http.StatusTeapot, api.ErrorResponse{}, api.ErrNetworkFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := api.ErrorFromResponse(tt.status, tt.body)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStatusFor(t *testing.T) {
	status, body := api.StatusFor(api.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, api.CodeInvalidCredentials, body.Error)

	status, body = api.StatusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, api.CodeInternal, body.Error)
}

func TestHTTPClient_UnresolvableUser(t *testing.T) {
	ctx := context.Background()
	bodies := map[string]string{
		"null":         `null`,
		"empty object": `{}`,
		"missing id":   `{"email":"jane@example.com","role":"client"}`,
		"unknown role": `{"id":"u-1","email":"jane@example.com","role":"owner"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch r.URL.Path {
				case api.PathCurrentUser:
					_, _ = w.Write([]byte(body))
				default:
					_, _ = w.Write([]byte(`{"token":"opaque-token","user":` + body + `}`))
				}
			}))
			t.Cleanup(ts.Close)
			client, err := api.NewHTTPClient(ts.URL)
			require.NoError(t, err)

			user, err := client.FetchCurrentUser(ctx, "opaque-token")
			require.ErrorIs(t, err, api.ErrNetworkFailure)
			require.Nil(t, user)

			_, err = client.Login(ctx, users.Credentials{Email: "jane@example.com", Password: "Password123"})
			require.ErrorIs(t, err, api.ErrNetworkFailure)

			_, err = client.Register(ctx, users.Registration{Email: "jane@example.com", Password: "Password123", FirstName: "Jane", LastName: "Doe"})
			require.ErrorIs(t, err, api.ErrNetworkFailure)
		})
	}

	t.Run("missing token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"user":{"id":"u-1","email":"jane@example.com","role":"client"}}`))
		}))
		t.Cleanup(ts.Close)
		client, err := api.NewHTTPClient(ts.URL)
		require.NoError(t, err)

		_, err = client.Login(ctx, users.Credentials{Email: "jane@example.com", Password: "Password123"})
		require.ErrorIs(t, err, api.ErrNetworkFailure)
	})
}
