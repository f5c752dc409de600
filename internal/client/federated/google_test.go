package federated

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestDisabledWithoutClientID(t *testing.T) {
	g := NewGoogle("", "", "")
	assert.False(t, g.Enabled())

	_, err := g.AuthCodeURL("s")
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	_, err = g.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
}

func TestAuthCodeURL(t *testing.T) {
	g := NewGoogle("cid", "secret", "")
	u, err := g.AuthCodeURL("state-1")
	require.NoError(t, err)
	assert.Contains(t, u, "client_id=cid")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "redirect_uri=http%3A%2F%2Flocalhost%3A8085%2Fcallback")
}

func TestParseCallback(t *testing.T) {
	code, err := ParseCallback("  4/abc  ")
	require.NoError(t, err)
	assert.Equal(t, "4/abc", code)

	code, err = ParseCallback("http://localhost:8085/callback?state=x&code=4%2Fxyz")
	require.NoError(t, err)
	assert.Equal(t, "4/xyz", code)

	for _, in := range []string{"", "   ", "http://localhost:8085/callback?error=access_denied", "http://localhost/callback?state=x"} {
		_, err = ParseCallback(in)
		assert.ErrorIs(t, err, common.ErrUserCancelled, in)
	}

	_, err = ParseCallback("http://localhost/callback?error=server_error")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func newGoogleAgainst(t *testing.T, tokenBody map[string]any, userinfo http.HandlerFunc) *Google {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenBody)
	})
	if userinfo != nil {
		mux.HandleFunc("/userinfo", userinfo)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := NewGoogle("cid", "secret", "")
	g.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	g.userInfoURL = srv.URL + "/userinfo"
	return g
}

func TestExchange_UsesIDTokenClaims(t *testing.T) {
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "g-123", "email": "ana@gmail.com", "name": "Ana G", "picture": "https://pic",
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	g := newGoogleAgainst(t, map[string]any{
		"access_token": "ga", "token_type": "Bearer", "expires_in": 3600, "id_token": idToken,
	}, nil)

	acc, err := g.Exchange(context.Background(), "http://localhost:8085/callback?code=good")
	require.NoError(t, err)
	assert.Equal(t, &Account{Subject: "g-123", Email: "ana@gmail.com", Name: "Ana G", Picture: "https://pic", AccessToken: "ga", IDToken: idToken}, acc)
}

func TestExchange_FallsBackToUserInfo(t *testing.T) {
	g := newGoogleAgainst(t, map[string]any{"access_token": "ga", "token_type": "Bearer"},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer ga", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(UserInfo{ID: "g-9", Email: "bea@gmail.com", Name: "Bea"})
		})

	acc, err := g.Exchange(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "g-9", acc.Subject)
	assert.Equal(t, "bea@gmail.com", acc.Email)
}

func TestExchange_BadCode(t *testing.T) {
	g := newGoogleAgainst(t, nil, nil)
	_, err := g.Exchange(context.Background(), "bad")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = g.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrUserCancelled)
}

func TestFetchUserInfo_Statuses(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := BearerClient(context.Background(), "tok")
	_, err := FetchUserInfo(context.Background(), client, srv.URL)
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	status = http.StatusInternalServerError
	_, err = FetchUserInfo(context.Background(), client, srv.URL)
	assert.ErrorIs(t, err, common.ErrUpstreamFailure)
}
