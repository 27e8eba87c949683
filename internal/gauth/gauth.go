// Package gauth holds and refreshes the Google OAuth credentials used to
// authorize spreadsheet fetches.
//
// The poller only needs a bearer token valid for one fetch call per cycle;
// refresh-on-demand is handled by the oauth2 token source and is opaque to
// callers. Token pairs are persisted by the configuration surface in the
// sync_settings table, not here.
package gauth

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SpreadsheetScope is the only scope worktrack requests: read-only access
// to spreadsheet values.
const SpreadsheetScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

// Config holds the OAuth client settings.
//
// Either ClientID/ClientSecret or SecretFile must be set. When SecretFile
// points at a client_secret.json downloaded from the Google console, it is
// parsed with the standard oauth2/google loader and takes precedence.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SecretFile   string
}

// Holder exposes the credential operations the poller and the auth
// endpoints need. The zero value is not usable; use NewHolder.
type Holder struct {
	mu   sync.RWMutex
	conf *oauth2.Config
	cfg  Config
}

// NewHolder builds a Holder from the given config.
func NewHolder(cfg Config) (*Holder, error) {
	conf, err := buildOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Holder{conf: conf, cfg: cfg}, nil
}

func buildOAuthConfig(cfg Config) (*oauth2.Config, error) {
	if cfg.SecretFile != "" {
		data, err := os.ReadFile(cfg.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client secret file: %w", err)
		}
		conf, err := google.ConfigFromJSON(data, SpreadsheetScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse client secret file: %w", err)
		}
		if cfg.RedirectURL != "" {
			conf.RedirectURL = cfg.RedirectURL
		}
		return conf, nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google client id and secret are required")
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{SpreadsheetScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// AuthURL returns the consent URL the dashboard opens in a popup.
// Offline access with forced consent guarantees a refresh token on the
// first exchange.
func (h *Holder) AuthURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conf.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token pair.
func (h *Holder) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	h.mu.RLock()
	conf := h.conf
	h.mu.RUnlock()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

// TokenSource returns a self-refreshing token source seeded with the
// stored token pair. The access token may be expired; the source refreshes
// it on demand using the refresh token.
func (h *Holder) TokenSource(ctx context.Context, accessToken, refreshToken string) oauth2.TokenSource {
	h.mu.RLock()
	conf := h.conf
	h.mu.RUnlock()

	return conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Reload re-reads the client secret file, replacing the OAuth config.
// A no-op when the holder was built from inline client id/secret.
func (h *Holder) Reload() error {
	if h.cfg.SecretFile == "" {
		return nil
	}

	conf, err := buildOAuthConfig(h.cfg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.conf = conf
	h.mu.Unlock()
	return nil
}
