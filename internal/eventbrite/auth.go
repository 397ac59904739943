package eventbrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Thomah/le-ptit-terminal/internal/config"
	"github.com/Thomah/le-ptit-terminal/internal/platform"
)

const (
	authorizeURL = "https://www.eventbrite.com/oauth/authorize"
	tokenURL     = "https://www.eventbrite.com/oauth/token"
	redirectURI  = "http://localhost:5000/callback"
	listenAddr   = "127.0.0.1:5000"

	// How long to wait for the user to finish the browser authorization.
	callbackWait = 3 * time.Minute
)

// Authenticator implements TokenSource on top of the persisted config:
// a cached token younger than an hour is reused, otherwise the
// authorization-code flow runs through the user's browser and a loopback
// callback server, and the fresh token is written back to the config file.
type Authenticator struct {
	configPath string
	httpClient *http.Client

	// Overridable for tests.
	authorizeURL string
	tokenURL     string
	redirectURI  string
	listenAddr   string
	openURL      func(string) error
	now          func() time.Time
}

func NewAuthenticator(configPath string) *Authenticator {
	return &Authenticator{
		configPath:   configPath,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		redirectURI:  redirectURI,
		listenAddr:   listenAddr,
		openURL:      platform.OpenURL,
		now:          time.Now,
	}
}

func (a *Authenticator) Token(ctx context.Context) (string, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return "", err
	}
	if cfg.TokenInfo.Valid(a.now()) {
		return cfg.TokenInfo.AccessToken, nil
	}

	if strings.TrimSpace(cfg.ClientID) == "" {
		return "", fmt.Errorf("client id is not set; configure it in the settings screen")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return "", fmt.Errorf("client secret is not set; configure it in the settings screen")
	}

	code, err := a.requestAuthorizationCode(ctx, cfg.ClientID)
	if err != nil {
		return "", err
	}
	token, err := a.exchangeCode(ctx, cfg.ClientID, cfg.ClientSecret, code)
	if err != nil {
		return "", err
	}

	cfg.TokenInfo = token
	if err := config.Save(a.configPath, cfg); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// requestAuthorizationCode opens the authorize page in the browser and
// waits for the redirect to hit the loopback callback server. The wait is
// bounded so a closed browser tab cannot hang a fetch forever.
func (a *Authenticator) requestAuthorizationCode(ctx context.Context, clientID string) (string, error) {
	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return "", fmt.Errorf("listen on %s for oauth callback: %w", a.listenAddr, err)
	}

	codeCh := make(chan string, 1)
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			code := strings.TrimSpace(r.URL.Query().Get("code"))
			if code == "" {
				http.Error(w, "missing authorization code", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, "Authorization successful. You may close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
	}
	go func() {
		_ = server.Serve(listener)
	}()
	defer server.Close()

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", clientID)
	query.Set("redirect_uri", a.redirectURI)
	if err := a.openURL(a.authorizeURL + "?" + query.Encode()); err != nil {
		return "", fmt.Errorf("open browser for authorization: %w", err)
	}

	timer := time.NewTimer(callbackWait)
	defer timer.Stop()
	select {
	case code := <-codeCh:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for the authorization callback")
	}
}

func (a *Authenticator) exchangeCode(ctx context.Context, clientID, clientSecret, code string) (*config.TokenInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", a.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("token exchange failed: %s", strings.TrimSpace(string(blob)))
	}

	var token config.TokenInfo
	if err := json.Unmarshal(blob, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	token.CreatedAt = a.now().Unix()
	return &token, nil
}
