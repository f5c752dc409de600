// Package federated implements Google sign-in for a terminal client: the
// user opens the consent URL, then pastes back the redirect URL (or just the
// code) which is exchanged for tokens.
package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultRedirectURL = "http://localhost:8085/callback"
	UserInfoURL        = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Account is what Google reports about the signed-in user.
type Account struct {
	Subject     string
	Email       string
	Name        string
	Picture     string
	AccessToken string
	IDToken     string
}

type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// NewGoogle returns a Google client. With an empty clientID the client is
// disabled and its methods return common.ErrBackendUnavailable.
func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: UserInfoURL,
	}
}

func (g *Google) Enabled() bool {
	return g != nil && g.cfg.ClientID != ""
}

func (g *Google) AuthCodeURL(state string) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("google client id not configured: %w", common.ErrBackendUnavailable)
	}
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// Exchange trades the pasted input for an Account. An empty input or a
// redirect carrying error=access_denied is a cancellation.
func (g *Google) Exchange(ctx context.Context, input string) (*Account, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("google client id not configured: %w", common.ErrBackendUnavailable)
	}
	code, err := ParseCallback(input)
	if err != nil {
		return nil, err
	}

	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", common.ErrInvalidCredentials, err)
	}

	acc := &Account{AccessToken: token.AccessToken}
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		acc.IDToken = raw
		fillFromIDToken(acc, raw)
	}
	if acc.Email == "" {
		info, err := FetchUserInfo(ctx, g.cfg.Client(ctx, token), g.userInfoURL)
		if err != nil {
			return nil, err
		}
		acc.Subject, acc.Email, acc.Name, acc.Picture = info.ID, info.Email, info.Name, info.Picture
	}
	return acc, nil
}

// ParseCallback extracts the authorization code from a pasted redirect URL
// or returns the input itself when it is a bare code.
func ParseCallback(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", common.ErrUserCancelled
	}
	if !strings.Contains(input, "://") && !strings.HasPrefix(input, "?") {
		return input, nil
	}
	raw := input
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed redirect url", common.ErrInvalidArgument)
	}
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return "", common.ErrUserCancelled
		}
		return "", fmt.Errorf("%w: google returned %s", common.ErrInvalidCredentials, e)
	}
	code := q.Get("code")
	if code == "" {
		return "", common.ErrUserCancelled
	}
	return code, nil
}

// fillFromIDToken reads the profile claims of an id_token. The token came
// straight from Google's token endpoint over TLS, so the signature is not
// checked here; the gateway verifies the access token on its side.
func fillFromIDToken(acc *Account, raw string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return
	}
	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}
	acc.Subject = str("sub")
	acc.Email = str("email")
	acc.Name = str("name")
	acc.Picture = str("picture")
}

// FetchUserInfo calls the Google userinfo endpoint with an authorized client.
func FetchUserInfo(ctx context.Context, client *http.Client, endpoint string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", common.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, common.ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: userinfo status %d", common.ErrUpstreamFailure, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", common.ErrUpstreamFailure, err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo without email", common.ErrInvalidCredentials)
	}
	return &info, nil
}

// BearerClient returns an HTTP client that sends accessToken on every call.
func BearerClient(ctx context.Context, accessToken string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}
