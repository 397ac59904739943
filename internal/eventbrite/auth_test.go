package eventbrite

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thomah/le-ptit-terminal/internal/config"
)

func TestTokenReusesFreshCachedToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	err := config.Save(path, &config.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenInfo:    &config.TokenInfo{AccessToken: "cached", CreatedAt: time.Now().Unix()},
	})
	if err != nil {
		t.Fatalf("save config: %v", err)
	}

	auth := NewAuthenticator(path)
	auth.openURL = func(string) error {
		t.Fatalf("browser must not open for a fresh cached token")
		return nil
	}

	token, err := auth.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if token != "cached" {
		t.Fatalf("expected cached token, got %q", token)
	}
}

func TestTokenFailsWithoutCredentials(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	auth := NewAuthenticator(path)

	_, err := auth.Token(context.Background())
	if err == nil {
		t.Fatalf("expected error when client id is missing")
	}
	if !strings.Contains(err.Error(), "client id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExchangeCodePostsFormAndStampsCreatedAt(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected grant_type: %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "the-code" {
			t.Errorf("unexpected code: %q", r.PostForm.Get("code"))
		}
		_, _ = io.WriteString(w, `{"access_token":"fresh-token"}`)
	}))
	defer srv.Close()

	now := time.Unix(4_000_000, 0)
	auth := NewAuthenticator(filepath.Join(t.TempDir(), "config.json"))
	auth.tokenURL = srv.URL
	auth.httpClient = srv.Client()
	auth.now = func() time.Time { return now }

	token, err := auth.exchangeCode(context.Background(), "id", "secret", "the-code")
	if err != nil {
		t.Fatalf("exchangeCode returned error: %v", err)
	}
	if token.AccessToken != "fresh-token" {
		t.Fatalf("unexpected access token: %q", token.AccessToken)
	}
	if token.CreatedAt != now.Unix() {
		t.Fatalf("expected created_at stamp %d, got %d", now.Unix(), token.CreatedAt)
	}
}

func TestExchangeCodeSurfacesErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	auth := NewAuthenticator(filepath.Join(t.TempDir(), "config.json"))
	auth.tokenURL = srv.URL
	auth.httpClient = srv.Client()

	_, err := auth.exchangeCode(context.Background(), "id", "secret", "bad-code")
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestAuthorizationCodeRoundTrip(t *testing.T) {
	t.Parallel()

	auth := NewAuthenticator(filepath.Join(t.TempDir(), "config.json"))
	auth.listenAddr = "127.0.0.1:53517"
	auth.redirectURI = "http://127.0.0.1:53517/callback"
	auth.openURL = func(authorize string) error {
		if !strings.Contains(authorize, "response_type=code") {
			t.Errorf("authorize url missing response_type: %q", authorize)
		}
		if !strings.Contains(authorize, "client_id=id") {
			t.Errorf("authorize url missing client id: %q", authorize)
		}
		go func() {
			// Simulate the provider redirecting the browser back.
			for i := 0; i < 50; i++ {
				resp, err := http.Get("http://127.0.0.1:53517/callback?code=granted")
				if err == nil {
					resp.Body.Close()
					return
				}
				time.Sleep(20 * time.Millisecond)
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	code, err := auth.requestAuthorizationCode(ctx, "id")
	if err != nil {
		t.Fatalf("requestAuthorizationCode returned error: %v", err)
	}
	if code != "granted" {
		t.Fatalf("unexpected code: %q", code)
	}
}
