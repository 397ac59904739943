package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ClientID != "" || cfg.ClientSecret != "" || cfg.TokenInfo != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	want := &Config{
		ClientID:     "id-123",
		ClientSecret: "secret-456",
		APIBaseURL:   "http://localhost:9999",
		TokenInfo:    &TokenInfo{AccessToken: "tok", CreatedAt: 1000},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.ClientID != want.ClientID || got.ClientSecret != want.ClientSecret {
		t.Fatalf("credentials mismatch: %+v", got)
	}
	if got.APIBaseURL != want.APIBaseURL {
		t.Fatalf("api base url mismatch: %q", got.APIBaseURL)
	}
	if got.TokenInfo == nil || got.TokenInfo.AccessToken != "tok" {
		t.Fatalf("token info mismatch: %+v", got.TokenInfo)
	}
}

func TestTokenInfoValid(t *testing.T) {
	t.Parallel()

	now := time.Unix(10_000, 0)
	cases := []struct {
		name  string
		token *TokenInfo
		want  bool
	}{
		{"nil", nil, false},
		{"empty", &TokenInfo{CreatedAt: now.Unix()}, false},
		{"fresh", &TokenInfo{AccessToken: "t", CreatedAt: now.Unix() - 100}, true},
		{"expired", &TokenInfo{AccessToken: "t", CreatedAt: now.Unix() - 3600}, false},
	}
	for _, tc := range cases {
		if got := tc.token.Valid(now); got != tc.want {
			t.Fatalf("%s: Valid=%v want %v", tc.name, got, tc.want)
		}
	}
}
