package client

import (
	"context"

	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
)

// Client is the client-side view of the identity gateway.
type Client interface {
	Close() error
	SignUp(ctx context.Context, email, password, displayName string) (*identityrpc.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*identityrpc.AuthResponse, error)
	SignInWithIdp(ctx context.Context, accessToken, idToken string) (*identityrpc.AuthResponse, error)
	Resume(ctx context.Context, refreshToken string) (*identityrpc.AuthResponse, error)
	SignOut(ctx context.Context) error
	PresignUpload(ctx context.Context, contentType string) (*identityrpc.PresignUploadResponse, error)
	Ping(ctx context.Context) error
	RefreshToken() string
}
