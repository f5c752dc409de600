package grpc

import (
	"context"

	"github.com/aquemenida/caliope-ai-studio/internal/gateway/models"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/services"
)

type fakeIdentity struct {
	Session *services.Session
	Err     error

	LastEmail    string
	LastPassword string
	LastName     string
	LastProvider string
	LastToken    string
	SignOutErr   error
}

func (f *fakeIdentity) result() (*services.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Session, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password, name string) (*services.Session, error) {
	f.LastEmail, f.LastPassword, f.LastName = email, password, name
	return f.result()
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*services.Session, error) {
	f.LastEmail, f.LastPassword = email, password
	return f.result()
}

func (f *fakeIdentity) SignInWithIdp(_ context.Context, provider, token string) (*services.Session, error) {
	f.LastProvider, f.LastToken = provider, token
	return f.result()
}

func (f *fakeIdentity) RefreshToken(_ context.Context, token string) (*services.Session, error) {
	f.LastToken = token
	return f.result()
}

func (f *fakeIdentity) SignOut(_ context.Context, token string) error {
	f.LastToken = token
	return f.SignOutErr
}

type fakeUploads struct {
	Upload          *services.Upload
	Err             error
	LastUserID      string
	LastContentType string
}

func (f *fakeUploads) PresignUpload(_ context.Context, userID, contentType string) (*services.Upload, error) {
	f.LastUserID, f.LastContentType = userID, contentType
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Upload, nil
}

func sampleSession() *services.Session {
	return &services.Session{
		User: &models.User{ID: "u-1", Email: "ana@example.com", DisplayName: "Ana", PhotoURL: "https://p/a.png"},
		Tokens: services.TokenPair{
			AccessToken:  "access",
			RefreshToken: "refresh",
		},
		IsNewUser: true,
	}
}
