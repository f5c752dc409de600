package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      identityrpc.IdentityClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == identityrpc.MethodRefreshToken {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &identityrpc.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient dials the gateway at endpointURL. The connection is lazy;
// an unreachable gateway surfaces on the first call.
func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = identityrpc.NewIdentityClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// RefreshToken returns the current refresh token, empty when signed out.
func (s *GRPCClient) RefreshToken() string {
	_, r := s.tokens()
	return r
}

func (s *GRPCClient) session(resp *identityrpc.AuthResponse, err error) (*identityrpc.AuthResponse, error) {
	if err != nil {
		return nil, s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp, nil
}

func (s *GRPCClient) SignUp(ctx context.Context, email, password, displayName string) (*identityrpc.AuthResponse, error) {
	return s.session(s.client.SignUp(ctx, &identityrpc.SignUpRequest{Email: email, Password: password, DisplayName: displayName}))
}

func (s *GRPCClient) SignIn(ctx context.Context, email, password string) (*identityrpc.AuthResponse, error) {
	return s.session(s.client.SignIn(ctx, &identityrpc.SignInRequest{Email: email, Password: password}))
}

func (s *GRPCClient) SignInWithIdp(ctx context.Context, accessToken, idToken string) (*identityrpc.AuthResponse, error) {
	return s.session(s.client.SignInWithIdp(ctx, &identityrpc.SignInWithIdpRequest{
		Provider:    identityrpc.ProviderGoogle,
		AccessToken: accessToken,
		IDToken:     idToken,
	}))
}

// Resume exchanges a stored refresh token for a new session.
func (s *GRPCClient) Resume(ctx context.Context, refreshToken string) (*identityrpc.AuthResponse, error) {
	return s.session(s.client.RefreshToken(ctx, &identityrpc.RefreshTokenRequest{RefreshToken: refreshToken}))
}

// SignOut revokes the refresh token on the gateway. The local token pair is
// dropped even when the call fails.
func (s *GRPCClient) SignOut(ctx context.Context) error {
	_, refresh := s.tokens()
	s.setTokens("", "")
	if refresh == "" {
		return nil
	}
	if _, err := s.client.SignOut(ctx, &identityrpc.SignOutRequest{RefreshToken: refresh}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) PresignUpload(ctx context.Context, contentType string) (*identityrpc.PresignUploadResponse, error) {
	resp, err := s.client.PresignUpload(ctx, &identityrpc.PresignUploadRequest{ContentType: contentType})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &identityrpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != identityrpc.StatusOK {
		return common.ErrBackendUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrInvalidCredentials
	case codes.AlreadyExists:
		return common.ErrDuplicateIdentity
	case codes.NotFound:
		return common.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrBackendUnavailable
	default:
		return fmt.Errorf("rpc error: %w: %w", common.ErrUpstreamFailure, err)
	}
}
