// Package client is a Go client for the LicitaBrasil API. It attaches the
// access token to every call and transparently refreshes it once when the
// server answers 401.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// OnSessionExpired runs once when a refresh fails and the tokens are dropped.
	OnSessionExpired func()
	Logger           *zerolog.Logger
}

type Client struct {
	http             *resty.Client
	onSessionExpired func()
	log              zerolog.Logger

	mu     sync.RWMutex
	tokens Tokens

	// refreshMu serialises refreshes so concurrent 401s share one.
	refreshMu sync.Mutex
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "licita-api-client").
			SetRetryCount(0),
		onSessionExpired: cfg.OnSessionExpired,
		log:              log.With().Str("component", "api-client").Logger(),
	}
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) SetTokens(tokens Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	if err != nil {
		return nil, err
	}
	c.SetTokens(Tokens{AccessToken: session.AccessToken, RefreshToken: session.RefreshToken})
	return &session, nil
}

// Logout revokes the refresh token server side. Local tokens are cleared
// even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.Tokens().RefreshToken
	defer c.SetTokens(Tokens{})
	if refresh == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refresh_token": refresh}, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListBiddings(ctx context.Context, q BiddingQuery) (*Page[Bidding], error) {
	query := url.Values{}
	setIfNotEmpty(query, "status", q.Status)
	setIfNotEmpty(query, "modality", q.Modality)
	setIfNotEmpty(query, "search", q.Search)
	setPage(query, q.Limit, q.Offset)

	var page Page[Bidding]
	if err := c.do(ctx, http.MethodGet, "/biddings", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetBidding(ctx context.Context, id uuid.UUID) (*Bidding, error) {
	var bidding Bidding
	if err := c.do(ctx, http.MethodGet, "/biddings/"+id.String(), nil, nil, &bidding); err != nil {
		return nil, err
	}
	return &bidding, nil
}

func (c *Client) ListNotifications(ctx context.Context, q NotificationQuery) (*Page[Notification], error) {
	query := url.Values{}
	if q.UnreadOnly {
		query.Set("unread", "true")
	}
	setIfNotEmpty(query, "type", q.Type)
	setPage(query, q.Limit, q.Offset)

	var page Page[Notification]
	if err := c.do(ctx, http.MethodGet, "/notifications", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) NotificationStats(ctx context.Context) (*NotificationStats, error) {
	var stats NotificationStats
	if err := c.do(ctx, http.MethodGet, "/notifications/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+id.String()+"/read", nil, nil, nil)
}

// do sends the request with the current access token. A 401 on any route
// other than login and refresh triggers one refresh and one retry.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	access := c.Tokens().AccessToken
	resp, err := c.send(ctx, method, path, query, body, result, access)
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusUnauthorized && !skipsRefresh(path) {
		access, err = c.refreshAfter(ctx, access)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, method, path, query, body, result, access)
		if err != nil {
			return err
		}
	}
	return toError(resp)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, result any, access string) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{})
	if access != "" {
		req.SetAuthToken(access)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, apiPrefix+path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// refreshAfter returns a usable access token after failed was rejected. When
// another goroutine already rotated the pair its token is reused.
func (c *Client) refreshAfter(ctx context.Context, failed string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.Tokens()
	if current.AccessToken != "" && current.AccessToken != failed {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		if current.AccessToken != "" {
			c.expire()
		}
		return "", ErrSessionExpired
	}

	var session Session
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"refresh_token": current.RefreshToken,
	}, &session, "")
	if err == nil {
		err = toError(resp)
	}
	if err != nil || session.AccessToken == "" {
		c.log.Warn().Err(err).Msg("token refresh failed")
		c.expire()
		return "", ErrSessionExpired
	}

	c.SetTokens(Tokens{AccessToken: session.AccessToken, RefreshToken: session.RefreshToken})
	return session.AccessToken, nil
}

func (c *Client) expire() {
	c.SetTokens(Tokens{})
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

func skipsRefresh(path string) bool {
	return path == "/auth/login" || path == "/auth/refresh"
}

func toError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

func setIfNotEmpty(query url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		query.Set(key, value)
	}
}

func setPage(query url.Values, limit, offset int) {
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
}
