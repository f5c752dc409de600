package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aquemenida/caliope-ai-studio/internal/client/federated"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// IdpIdentity is what an identity provider reports about a token holder.
type IdpIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IdpVerifier turns a provider access token into an identity. Tokens the
// provider rejects yield common.ErrInvalidCredentials.
type IdpVerifier interface {
	Verify(ctx context.Context, accessToken string) (*IdpIdentity, error)
}

// GoogleVerifier asks Google's userinfo endpoint who owns an access token.
type GoogleVerifier struct {
	userInfoURL string
	newClient   func(ctx context.Context, accessToken string) *http.Client
}

func NewGoogleVerifier(userInfoURL string) *GoogleVerifier {
	if userInfoURL == "" {
		userInfoURL = federated.UserInfoURL
	}
	return &GoogleVerifier{userInfoURL: userInfoURL, newClient: federated.BearerClient}
}

func (g *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*IdpIdentity, error) {
	info, err := federated.FetchUserInfo(ctx, g.newClient(ctx, accessToken), g.userInfoURL)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("verify google token: %w", err)
	}
	if !info.VerifiedEmail {
		return nil, fmt.Errorf("%w: google email is not verified", common.ErrInvalidCredentials)
	}
	return &IdpIdentity{Subject: info.ID, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}
