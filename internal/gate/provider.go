package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrProviderUnavailable wraps transient identity-provider failures. The
// whole authorization flow is safe to retry from the start.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// Provider abstracts the biometric identity provider. It is an opaque
// OAuth-style service: the gate sends the user through AuthorizeURL and
// later exchanges the returned code for a stable subject identifier.
type Provider interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// OAuthConfig configures the HTTP provider client.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scope        string
}

// OAuthProvider talks to a Humanode-style OAuth server over HTTP.
type OAuthProvider struct {
	cfg    OAuthConfig
	client *http.Client
}

// NewOAuthProvider builds the HTTP provider client.
func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	if cfg.Scope == "" {
		cfg.Scope = "face_scan"
	}
	return &OAuthProvider{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

// AuthorizeURL returns the provider URL the user is sent to, with the opaque
// state parameter riding along.
func (p *OAuthProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("scope", p.cfg.Scope)
	q.Set("state", state)
	return p.cfg.AuthURL + "?" + q.Encode()
}

// Exchange trades the authorization code for a token and resolves the stable
// subject identifier of the verified human.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrProviderUnavailable, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderUnavailable)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}
	infoReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	infoResp, err := p.client.Do(infoReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer infoResp.Body.Close()
	if infoResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo endpoint returned %d", ErrProviderUnavailable, infoResp.StatusCode)
	}

	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: decode userinfo response: %v", ErrProviderUnavailable, err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("%w: userinfo has no subject", ErrProviderUnavailable)
	}
	return info.Sub, nil
}
