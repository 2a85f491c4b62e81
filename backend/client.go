// Package backend is an HTTP implementation of the engine's backend service
// contract. Identity travels through ambient credentials on the client (a
// cookie jar by default, optionally a bearer token); request bodies never
// carry session identifiers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	fitauth "github.com/fitgpt/fitauth"
)

const defaultTimeout = 15 * time.Second

// Client talks to the application backend over HTTP.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
	userAgent   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for timeouts, TLS config, etc.).
// The client should carry a cookie jar when the backend uses cookie sessions.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBearerToken switches ambient credential transport from the cookie jar
// to an Authorization header.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) {
		c.bearerToken = token
	}
}

// WithUserAgent sets the User-Agent header on all backend requests.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Token string        `json:"token"`
	User  identityBlock `json:"user"`
}

type identityBlock struct {
	ProviderID  string `json:"providerId"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatarUrl"`
}

type sendOTPRequest struct {
	Email  string `json:"email"`
	Digits int    `json:"digits"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type deleteRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UpsertIdentity exchanges a provider proof token and identity for the
// canonical backend user record.
func (c *Client) UpsertIdentity(ctx context.Context, proofToken string, id fitauth.Identity) (*fitauth.BackendUser, error) {
	body := loginRequest{
		Token: proofToken,
		User: identityBlock{
			ProviderID:  id.ProviderID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			AvatarURL:   id.AvatarURL,
		},
	}

	resp, err := c.post(ctx, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend login: %s", statusDetail(resp))
	}

	var user fitauth.BackendUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("backend login: decode response: %w", err)
	}
	return &user, nil
}

// SendOTP asks the backend to generate and email a one-time code of the
// requested length.
func (c *Client) SendOTP(ctx context.Context, email string, digits int) error {
	resp, err := c.post(ctx, "/send-otp", sendOTPRequest{Email: email, Digits: digits})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send otp: %s", statusDetail(resp))
	}
	return nil
}

// VerifyOTP submits a code for verification. A definitive backend rejection
// maps to fitauth.ErrInvalidOTP; transport and server faults surface as
// plain errors so the engine does not charge an attempt for them.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	resp, err := c.post(ctx, "/verify-otp", verifyOTPRequest{Email: email, Code: code})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", fitauth.ErrInvalidOTP, statusDetail(resp))
	default:
		return fmt.Errorf("verify otp: %s", statusDetail(resp))
	}
}

// Logout clears the backend session for the ambient credentials.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend logout: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend logout: %s", statusDetail(resp))
	}
	return nil
}

// NotifyDeletion tells the backend an account deletion is in progress so the
// server-side record can be removed.
func (c *Client) NotifyDeletion(ctx context.Context, proofToken string) error {
	resp, err := c.post(ctx, "/auth/delete-account", deleteRequest{Token: proofToken})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend deletion: %s", statusDetail(resp))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request %s: %w", path, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// statusDetail extracts the backend's error message when present, falling
// back to the HTTP status line.
func statusDetail(resp *http.Response) string {
	var parsed errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return resp.Status
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}
