// Package apiclient is the authenticated REST client for the scheduling backend.
//
// It owns the session token: Login stores it, every authenticated call sends it as a
// bearer token, and a 401 (or a token whose exp claim has passed) ends the session,
// clears the stored credentials and notifies the OnSessionExpired hooks.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

const (
	msgLoginOffline   = "Unable to connect to server. Please check your internet connection."
	msgRequestOffline = "Cannot connect to server. Please check your internet connection."
)

// Options configures a Client
type Options struct {
	BaseURL            string
	Timeout            time.Duration // zero means no client-side timeout
	RateLimitPerSecond float64
	RateLimitBurst     int
	Transport          http.RoundTripper
	Store              *TokenStore
	Logger             *zap.Logger
}

type Client struct {
	baseURL string
	timeout time.Duration
	base    http.RoundTripper
	store   *TokenStore
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
	hooks []func()
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		base:    newLoggingTransport(opts.Transport, newLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst), logger),
		store:   opts.Store,
		logger:  logger,
		now:     time.Now,
	}
}

// OnSessionExpired registers fn to run after the server rejects the session token
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a session token. Wrong credentials return (false, nil).
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return false, fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := &http.Client{Transport: c.base, Timeout: c.timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return false, c.transportError(ctx, msgLoginOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, c.transportError(ctx, msgLoginOffline, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	if !isSuccess(resp.StatusCode) {
		return false, apierr.Auth(fmt.Sprintf("Login failed with status: %d", resp.StatusCode), "")
	}

	var data loginResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return false, apierr.Auth("Invalid response from server", apierr.CodeInvalidResponse)
	}
	if data.Token == "" {
		return false, apierr.Auth("No authentication token received", "")
	}

	token := &oauth2.Token{
		AccessToken: data.Token,
		TokenType:   "Bearer",
		Expiry:      tokenExpiry(data.Token),
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveToken(token); err != nil {
			c.logger.Warn("Failed to persist session token", zap.Error(err))
		}
		if data.User != nil {
			if err := c.store.SaveUser(data.User); err != nil {
				c.logger.Warn("Failed to persist user", zap.Error(err))
			}
		}
	}

	c.logger.Info("Logged in", zap.String("username", username))
	return true, nil
}

// Logout forgets the in-memory token and deletes the stored credentials
func (c *Client) Logout() error {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// User returns the stored signed-in user, or nil
func (c *Client) User() (*model.User, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.LoadUser()
}

func (c *Client) HasStoredToken() bool {
	token, err := c.currentToken()
	return err == nil && token != nil
}

// IsAuthenticated verifies the stored token against GET /api/user
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if !c.HasStoredToken() {
		return false
	}
	resp, err := c.Do(ctx, http.MethodGet, "/api/user", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return isSuccess(resp.StatusCode)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword reports whether the server acknowledged the change with success=true
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) (bool, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/api/user/change-password", changePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, c.transportError(ctx, msgRequestOffline, err)
	}

	if isSuccess(resp.StatusCode) {
		var data struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(body, &data); err != nil {
			return false, apierr.Auth("Invalid response from server", apierr.CodeInvalidResponse)
		}
		return data.Success, nil
	}

	var errData struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errData); err != nil {
		return false, apierr.Auth("Failed to change password", "")
	}
	if errData.Error != "" {
		return false, apierr.Auth(errData.Error, "")
	}
	if resp.StatusCode == http.StatusBadRequest {
		return false, apierr.Auth("Invalid password", "")
	}
	return false, apierr.Auth(fmt.Sprintf("Failed with status: %d", resp.StatusCode), "")
}

// Do sends an authenticated request. body, if not nil, is sent as JSON.
// The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.currentToken()
	if err != nil {
		c.logger.Warn("Failed to load stored token", zap.Error(err))
	}
	if token == nil {
		return nil, apierr.Auth("Not authenticated", apierr.CodeNotAuthenticated)
	}
	if !token.Expiry.IsZero() && !c.now().Before(token.Expiry) {
		c.expireSession()
		return nil, apierr.SessionExpired()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: c.base},
		Timeout:   c.timeout,
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, msgRequestOffline, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.expireSession()
		return nil, apierr.SessionExpired()
	}

	return resp, nil
}

// GetJSON performs an authenticated GET and returns the raw body of a 2xx response
func (c *Client) GetJSON(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, apierr.API(fmt.Sprintf("HTTP error! status: %d", resp.StatusCode), resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, msgRequestOffline, err)
	}
	return data, nil
}

// sendJSON runs an authenticated mutation and decodes the response into out when out is not nil
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, msgRequestOffline, err)
	}

	if !isSuccess(resp.StatusCode) {
		message := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		var errData struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errData) == nil && errData.Error != "" {
			message = errData.Error
		}
		return apierr.API(message, resp.StatusCode)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) currentToken() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil {
		return c.token, nil
	}
	if c.store == nil {
		return nil, nil
	}
	token, err := c.store.LoadToken()
	if err != nil {
		return nil, err
	}
	c.token = token
	return token, nil
}

func (c *Client) expireSession() {
	c.logger.Info("Session expired, clearing credentials")
	if err := c.Logout(); err != nil {
		c.logger.Warn("Failed to clear credentials after session expiry", zap.Error(err))
	}

	c.mu.Lock()
	hooks := make([]func(), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// transportError classifies a failed round trip. A cancelled caller context is not a
// connectivity problem, so it must not trigger the offline cache fallback.
func (c *Client) transportError(ctx context.Context, message string, err error) error {
	if ctx.Err() != nil {
		return apierr.Unexpected("Request cancelled", err)
	}
	c.logger.Debug("Transport failure", zap.Error(err))
	return apierr.Network(message, err)
}

// tokenExpiry reads the exp claim without verifying the signature. Tokens without a
// readable exp never expire locally and are left to the server to reject.
func tokenExpiry(raw string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
