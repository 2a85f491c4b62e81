// Package local is an in-memory identity provider. It implements the full
// provider contract with argon2id-hashed credentials and is intended for
// development environments and tests; nothing persists across restarts.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	fitauth "github.com/fitgpt/fitauth"
	"github.com/fitgpt/fitauth/password"
)

type account struct {
	providerID   string
	email        string
	displayName  string
	passwordHash string
	verified     bool
}

// Provider defines a public type used by fitauth APIs.
//
// Provider instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]*account
	hasher   *password.Hasher

	// MailSink receives dispatched email kinds keyed by address. Tests read
	// it to assert reset and verification traffic.
	mailMu   sync.Mutex
	mailSink map[string][]string
}

// NewProvider describes the newprovider operation and its observable behavior.
//
// NewProvider may return an error when input validation, dependency calls, or security checks fail.
// NewProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewProvider() (*Provider, error) {
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Provider{
		accounts: make(map[string]*account),
		hasher:   hasher,
		mailSink: make(map[string][]string),
	}, nil
}

// FederatedSignIn is not supported by the local provider.
func (p *Provider) FederatedSignIn(ctx context.Context) (*fitauth.Identity, string, error) {
	return nil, "", fmt.Errorf("%w: local provider has no federated flow", fitauth.ErrProviderError)
}

// PasswordSignIn describes the passwordsignin operation and its observable behavior.
//
// PasswordSignIn may return an error when input validation, dependency calls, or security checks fail.
// PasswordSignIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) PasswordSignIn(ctx context.Context, email, pass string) (*fitauth.Identity, string, error) {
	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return nil, "", fitauth.ErrInvalidCredential
	}

	match, err := p.hasher.Verify(pass, acct.passwordHash)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", fitauth.ErrProviderError, err)
	}
	if !match {
		return nil, "", fitauth.ErrInvalidCredential
	}
	if !acct.verified {
		return nil, "", fitauth.ErrEmailNotVerified
	}

	return &fitauth.Identity{
		ProviderID:    acct.providerID,
		Email:         acct.email,
		DisplayName:   acct.displayName,
		EmailVerified: true,
	}, uuid.NewString(), nil
}

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) Register(ctx context.Context, email, pass string) error {
	hash, err := p.hasher.Hash(pass)
	if err != nil {
		return fmt.Errorf("%w: %v", fitauth.ErrProviderError, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.accounts[email]; exists {
		return fmt.Errorf("%w: account already exists", fitauth.ErrProviderError)
	}
	p.accounts[email] = &account{
		providerID:   uuid.NewString(),
		email:        email,
		passwordHash: hash,
	}
	return nil
}

// SendPasswordReset records the dispatch. Unknown addresses succeed so
// callers cannot probe account existence.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	p.recordMail(email, "password_reset")
	return nil
}

// SendVerification describes the sendverification operation and its observable behavior.
//
// SendVerification may return an error when input validation, dependency calls, or security checks fail.
// SendVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SendVerification(ctx context.Context, email string) error {
	p.recordMail(email, "verification")
	return nil
}

// SignOut is local-only state; there is nothing provider-side to revoke.
func (p *Provider) SignOut(ctx context.Context) error {
	return nil
}

// DeleteCredential describes the deletecredential operation and its observable behavior.
//
// DeleteCredential may return an error when input validation, dependency calls, or security checks fail.
// DeleteCredential does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) DeleteCredential(ctx context.Context, providerID, proofToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for email, acct := range p.accounts {
		if acct.providerID == providerID {
			delete(p.accounts, email)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown credential", fitauth.ErrProviderError)
}

// MarkVerified flips the verification flag for an account, standing in for
// the user clicking the emailed link.
func (p *Provider) MarkVerified(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[email]
	if !ok {
		return false
	}
	acct.verified = true
	return true
}

// SentMail returns the recorded email kinds for an address, oldest first.
func (p *Provider) SentMail(email string) []string {
	p.mailMu.Lock()
	defer p.mailMu.Unlock()
	out := make([]string, len(p.mailSink[email]))
	copy(out, p.mailSink[email])
	return out
}

func (p *Provider) recordMail(email, kind string) {
	p.mailMu.Lock()
	defer p.mailMu.Unlock()
	p.mailSink[email] = append(p.mailSink[email], kind)
}
