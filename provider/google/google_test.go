package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fitauth "github.com/fitgpt/fitauth"
)

// unsignedIDToken builds a JWT-shaped token for claim extraction tests; the
// signature segment is never inspected.
func unsignedIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(header) +
		"." + base64.RawURLEncoding.EncodeToString(payload) +
		"." + base64.RawURLEncoding.EncodeToString([]byte("sig"))
}

func TestIdentityFromIDToken(t *testing.T) {
	raw := unsignedIDToken(t, map[string]any{
		"sub":     "google-uid-1",
		"email":   "a@b.c",
		"name":    "Alice",
		"picture": "https://example.com/a.png",
	})

	id, err := identityFromIDToken(raw)
	if err != nil {
		t.Fatalf("extract identity: %v", err)
	}
	if id.ProviderID != "google-uid-1" || id.Email != "a@b.c" || id.DisplayName != "Alice" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if !id.EmailVerified {
		t.Fatal("federated identities are verified by the provider")
	}
}

func TestIdentityFromIDToken_MissingClaims(t *testing.T) {
	raw := unsignedIDToken(t, map[string]any{"name": "Alice"})

	if _, err := identityFromIDToken(raw); !errors.Is(err, fitauth.ErrProviderError) {
		t.Fatalf("expected ErrProviderError for missing claims, got %v", err)
	}
}

func TestFederatedSignIn_CancelledCodeSource(t *testing.T) {
	p := NewProvider("id", "secret", "http://localhost/cb", "key",
		func(ctx context.Context, authURL string) (string, error) {
			return "", context.Canceled
		})

	_, _, err := p.FederatedSignIn(context.Background())
	if !errors.Is(err, fitauth.ErrProviderCancelled) {
		t.Fatalf("expected ErrProviderCancelled, got %v", err)
	}
}

func TestFederatedSignIn_NoCodeSource(t *testing.T) {
	p := NewProvider("id", "secret", "http://localhost/cb", "key", nil)

	_, _, err := p.FederatedSignIn(context.Background())
	if !errors.Is(err, fitauth.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func newToolkitServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for endpoint, h := range handlers {
		mux.HandleFunc("/"+endpoint, h)
	}
	return httptest.NewServer(mux)
}

func TestPasswordSignIn_Verified(t *testing.T) {
	srv := newToolkitServer(t, map[string]http.HandlerFunc{
		"accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(toolkitSignInResponse{
				LocalID: "uid-1",
				Email:   "a@b.c",
				IDToken: "toolkit-token",
			})
		},
		"accounts:lookup": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(toolkitLookupResponse{
				Users: []toolkitUserRecord{{
					LocalID:       "uid-1",
					Email:         "a@b.c",
					EmailVerified: true,
					DisplayName:   "Alice",
				}},
			})
		},
	})
	defer srv.Close()

	p := NewProvider("id", "secret", "http://localhost/cb", "key", nil, WithToolkitBaseURL(srv.URL))
	id, proof, err := p.PasswordSignIn(context.Background(), "a@b.c", "pw-123456")
	if err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if id.ProviderID != "uid-1" || !id.EmailVerified {
		t.Fatalf("unexpected identity %+v", id)
	}
	if proof != "toolkit-token" {
		t.Fatalf("expected the toolkit token as proof, got %q", proof)
	}
}

func TestPasswordSignIn_Unverified(t *testing.T) {
	srv := newToolkitServer(t, map[string]http.HandlerFunc{
		"accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(toolkitSignInResponse{LocalID: "uid-1", IDToken: "tok"})
		},
		"accounts:lookup": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(toolkitLookupResponse{
				Users: []toolkitUserRecord{{LocalID: "uid-1", Email: "a@b.c"}},
			})
		},
	})
	defer srv.Close()

	p := NewProvider("id", "secret", "http://localhost/cb", "key", nil, WithToolkitBaseURL(srv.URL))
	_, _, err := p.PasswordSignIn(context.Background(), "a@b.c", "pw-123456")
	if !errors.Is(err, fitauth.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestPasswordSignIn_InvalidCredential(t *testing.T) {
	srv := newToolkitServer(t, map[string]http.HandlerFunc{
		"accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "INVALID_LOGIN_CREDENTIALS"},
			})
		},
	})
	defer srv.Close()

	p := NewProvider("id", "secret", "http://localhost/cb", "key", nil, WithToolkitBaseURL(srv.URL))
	_, _, err := p.PasswordSignIn(context.Background(), "a@b.c", "wrong-pass")
	if !errors.Is(err, fitauth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestSendPasswordReset_UnknownAddressSucceeds(t *testing.T) {
	srv := newToolkitServer(t, map[string]http.HandlerFunc{
		"accounts:sendOobCode": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "EMAIL_NOT_FOUND"},
			})
		},
	})
	defer srv.Close()

	p := NewProvider("id", "secret", "http://localhost/cb", "key", nil, WithToolkitBaseURL(srv.URL))
	if err := p.SendPasswordReset(context.Background(), "nobody@b.c"); err != nil {
		t.Fatalf("unknown address must not error, got %v", err)
	}
}
