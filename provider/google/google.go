// Package google implements the identity provider contract against Google:
// the OAuth authorization-code flow for federated sign-in and the Identity
// Toolkit REST API for email/password credentials.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	fitauth "github.com/fitgpt/fitauth"
)

const identityToolkitBase = "https://identitytoolkit.googleapis.com/v1"

// CodeSource completes the interactive part of the authorization-code flow:
// it presents authURL to the user (popup, browser redirect, device prompt)
// and returns the authorization code from the callback. Returning
// context.Canceled means the user closed the flow without finishing it.
type CodeSource func(ctx context.Context, authURL string) (code string, err error)

// Provider defines a public type used by fitauth APIs.
//
// Provider instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Provider struct {
	oauthConfig oauth2.Config
	codeSource  CodeSource
	apiKey      string
	httpClient  *http.Client
	toolkitBase string
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Provider) {
		if httpClient != nil {
			p.httpClient = httpClient
		}
	}
}

// WithToolkitBaseURL overrides the Identity Toolkit base URL. Tests point it
// at a local server.
func WithToolkitBaseURL(base string) Option {
	return func(p *Provider) {
		p.toolkitBase = strings.TrimSuffix(base, "/")
	}
}

// NewProvider describes the newprovider operation and its observable behavior.
//
// NewProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewProvider(clientID, clientSecret, callbackURL, apiKey string, codeSource CodeSource, opts ...Option) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	p := &Provider{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: googleoauth.Endpoint,
		},
		codeSource:  codeSource,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		toolkitBase: identityToolkitBase,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FederatedSignIn runs the authorization-code flow. The code source handles
// the interactive leg; cancelling it maps to fitauth.ErrProviderCancelled.
// The returned proof token is the Google-signed ID token.
func (p *Provider) FederatedSignIn(ctx context.Context) (*fitauth.Identity, string, error) {
	if p.codeSource == nil {
		return nil, "", fmt.Errorf("%w: no code source configured", fitauth.ErrProviderError)
	}

	authURL := p.oauthConfig.AuthCodeURL(oauth2.GenerateVerifier(), oauth2.AccessTypeOnline)
	code, err := p.codeSource(ctx, authURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, fitauth.ErrProviderCancelled) {
			return nil, "", fitauth.ErrProviderCancelled
		}
		return nil, "", fmt.Errorf("%w: %v", fitauth.ErrProviderError, err)
	}

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%w: code exchange: %v", fitauth.ErrProviderError, err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, "", fmt.Errorf("%w: token response carried no id_token", fitauth.ErrProviderError)
	}

	identity, err := identityFromIDToken(rawIDToken)
	if err != nil {
		return nil, "", err
	}
	return identity, rawIDToken, nil
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// identityFromIDToken extracts the profile claims from a Google ID token.
// The token arrived over the provider's own TLS channel moments ago, so the
// signature is not re-verified here; the backend verifies it when the token
// is presented as proof.
func identityFromIDToken(raw string) (*fitauth.Identity, error) {
	var claims idTokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: parse id token: %v", fitauth.ErrProviderError, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: id token missing subject or email", fitauth.ErrProviderError)
	}

	return &fitauth.Identity{
		ProviderID:    claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		AvatarURL:     claims.Picture,
		EmailVerified: true,
	}, nil
}

type toolkitSignInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type toolkitErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolkitUserRecord struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
}

type toolkitLookupResponse struct {
	Users []toolkitUserRecord `json:"users"`
}

// PasswordSignIn authenticates an email/password credential against the
// Identity Toolkit and gates on email verification.
func (p *Provider) PasswordSignIn(ctx context.Context, email, password string) (*fitauth.Identity, string, error) {
	var signIn toolkitSignInResponse
	err := p.toolkitCall(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &signIn)
	if err != nil {
		return nil, "", err
	}

	var lookup toolkitLookupResponse
	if err := p.toolkitCall(ctx, "accounts:lookup", map[string]any{
		"idToken": signIn.IDToken,
	}, &lookup); err != nil {
		return nil, "", err
	}
	if len(lookup.Users) == 0 {
		return nil, "", fmt.Errorf("%w: account lookup returned no user", fitauth.ErrProviderError)
	}
	user := lookup.Users[0]
	if !user.EmailVerified {
		return nil, "", fitauth.ErrEmailNotVerified
	}

	return &fitauth.Identity{
		ProviderID:    user.LocalID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.PhotoURL,
		EmailVerified: true,
	}, signIn.IDToken, nil
}

// Register creates a new password credential. The new account starts with an
// unverified email; it never authenticates here.
func (p *Provider) Register(ctx context.Context, email, password string) error {
	var created toolkitSignInResponse
	return p.toolkitCall(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &created)
}

// SendPasswordReset dispatches a reset email. Unknown addresses succeed so
// callers cannot probe account existence.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	err := p.toolkitCall(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
	if errors.Is(err, fitauth.ErrInvalidCredential) {
		// EMAIL_NOT_FOUND and friends: report success for unknown addresses.
		return nil
	}
	return err
}

// SendVerification dispatches an email verification message. The toolkit
// requires an ID token for the verify request type, so this signs nothing
// and relies on the oobCode email linkage instead.
func (p *Provider) SendVerification(ctx context.Context, email string) error {
	return p.toolkitCall(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"email":       email,
	}, nil)
}

// SignOut is local-only for this provider: Google issues no revocable
// session for the flows used here.
func (p *Provider) SignOut(ctx context.Context) error {
	return nil
}

// DeleteCredential permanently removes the account behind the proof token.
func (p *Provider) DeleteCredential(ctx context.Context, providerID, proofToken string) error {
	return p.toolkitCall(ctx, "accounts:delete", map[string]any{
		"idToken": proofToken,
	}, nil)
}

// toolkitCall posts a JSON body to an Identity Toolkit endpoint and decodes
// the response. Toolkit error messages are mapped onto the package
// sentinels.
func (p *Provider) toolkitCall(ctx context.Context, endpoint string, body map[string]any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", fitauth.ErrProviderError, err)
	}

	reqURL := p.toolkitBase + "/" + endpoint + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", fitauth.ErrProviderError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fitauth.ErrProviderError, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var parsed toolkitErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed)
		return toolkitError(endpoint, resp.StatusCode, parsed.Error.Message)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", fitauth.ErrProviderError, err)
		}
	}
	return nil
}

func toolkitError(endpoint string, status int, message string) error {
	switch {
	case strings.HasPrefix(message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(message, "INVALID_PASSWORD"),
		strings.HasPrefix(message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(message, "USER_DISABLED"):
		return fitauth.ErrInvalidCredential
	case message != "":
		return fmt.Errorf("%w: %s %s", fitauth.ErrProviderError, endpoint, message)
	default:
		return fmt.Errorf("%w: %s status %d", fitauth.ErrProviderError, endpoint, status)
	}
}
