package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Endpoint paths of the backend contract
const (
	PathCurrentUser = "/api/auth/me"
	PathLogin       = "/api/auth/login"
	PathRegister    = "/api/auth/register"
	PathPlatforms   = "/api/platforms"
	PathAccounts    = "/api/platforms/{id}/accounts"

	requestIDHeader  = "X-Request-ID"
	maxResponseBytes = 4 << 20
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient speaks the backend contract as JSON over HTTP
type HTTPClient struct {
	baseURL    string
	transport  http.RoundTripper
	timeout    time.Duration
	maxTries   uint
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// WithTransport replaces the base round tripper
func WithTransport(rt http.RoundTripper) HTTPClientOption {
	return func(c *HTTPClient) {
		c.transport = rt
	}
}

// WithCache layers the HTTP cache over the current transport
func WithCache(cacheDir string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.transport = NewCachingTransport(cacheDir, c.transport)
	}
}

// WithMaxTries bounds attempts for idempotent reads. Writes are never retried.
func WithMaxTries(n uint) HTTPClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithBackOff sets the retry schedule factory (primarily for testing)
func WithBackOff(newBackOff func() backoff.BackOff) HTTPClientOption {
	return func(c *HTTPClient) {
		c.newBackOff = newBackOff
	}
}

func WithLogger(logger zerolog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

func NewHTTPClient(baseURL string, options ...HTTPClientOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[NewHTTPClient] invalid base URL %q", baseURL)
	}

	c := &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: http.DefaultTransport,
		timeout:   30 * time.Second,
		maxTries:  3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "api").Logger()
	return c, nil
}

func (c *HTTPClient) FetchCurrentUser(ctx context.Context, token string) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodGet, PathCurrentUser, token, nil, &user); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.FetchCurrentUser]")
	}
	if !user.IsResolvable() {
		return nil, errors.Wrap(ErrNetworkFailure, "[HTTPClient.FetchCurrentUser] unresolvable user in response")
	}
	return &user, nil
}

func (c *HTTPClient) Login(ctx context.Context, credentials users.Credentials) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, PathLogin, "", credentials, &result); err != nil {
		// A 401 on the login endpoint means bad credentials, not a bad token
		if errors.Is(err, ErrUnauthorized) {
			err = errors.Wrap(ErrInvalidCredentials, err.Error())
		}
		return nil, errors.Wrap(err, "[HTTPClient.Login]")
	}
	if err := checkAuthResult(&result); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.Login]")
	}
	return &result, nil
}

func (c *HTTPClient) Register(ctx context.Context, registration users.Registration) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, PathRegister, "", registration, &result); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.Register]")
	}
	if err := checkAuthResult(&result); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.Register]")
	}
	return &result, nil
}

// checkAuthResult rejects a 2xx auth response without a token or a
// resolvable user
func checkAuthResult(result *AuthResult) error {
	if result.Token == "" {
		return errors.Wrap(ErrNetworkFailure, "missing token in response")
	}
	if !result.User.IsResolvable() {
		return errors.Wrap(ErrNetworkFailure, "unresolvable user in response")
	}
	return nil
}

func (c *HTTPClient) ListPlatforms(ctx context.Context, token string) ([]Platform, error) {
	var platforms []Platform
	if err := c.do(ctx, http.MethodGet, PathPlatforms, token, nil, &platforms); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.ListPlatforms]")
	}
	return platforms, nil
}

func (c *HTTPClient) ListAccounts(ctx context.Context, token, platformID string) ([]Account, error) {
	path := strings.Replace(PathAccounts, "{id}", url.PathEscape(platformID), 1)
	var accounts []Account
	if err := c.do(ctx, http.MethodGet, path, token, nil, &accounts); err != nil {
		return nil, errors.Wrapf(err, "[HTTPClient.ListAccounts] platform %s", platformID)
	}
	return accounts, nil
}

func (c *HTTPClient) httpClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Timeout: c.timeout, Transport: c.transport}
	}
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	tries := c.maxTries
	if method != http.MethodGet {
		tries = 1
	}

	client := c.httpClient(token)
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		return struct{}{}, c.roundTrip(ctx, client, method, path, body, out, attempt)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(tries),
	)
	if err != nil && !apperrors.IsExpected(err) {
		// Context cancellation and other transport-level endings
		err = errors.Wrap(ErrNetworkFailure, err.Error())
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, client *http.Client, method, path string, body []byte, out any, attempt int) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).
			Str("request_id", requestID).Int("attempt", attempt).Msg("request failed")
		if ctx.Err() != nil {
			return backoff.Permanent(errors.Wrap(ErrNetworkFailure, ctx.Err().Error()))
		}
		return errors.Wrap(ErrNetworkFailure, err.Error())
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).
		Int("status", resp.StatusCode).Dur("duration", time.Since(started)).Msg("api call")

	// Read to EOF so the caching transport can store the body
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(ErrNetworkFailure, "read response: "+err.Error())
	}

	if resp.StatusCode >= 500 {
		return errors.Wrapf(ErrNetworkFailure, "server returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errBody ErrorResponse
		_ = json.Unmarshal(payload, &errBody)
		return backoff.Permanent(ErrorFromResponse(resp.StatusCode, errBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return backoff.Permanent(errors.Wrap(ErrNetworkFailure, "decode response: "+err.Error()))
	}
	return nil
}
