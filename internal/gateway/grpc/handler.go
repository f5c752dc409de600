package grpc

import (
	"context"
	"errors"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/services"
	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrInvalidCredentials, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrRefreshTokenExpired, codes.Unauthenticated},
	{common.ErrDuplicateIdentity, codes.AlreadyExists},
	{common.ErrNotFound, codes.NotFound},
	{common.ErrInvalidArgument, codes.InvalidArgument},
	{common.ErrBackendUnavailable, codes.Unavailable},
	{common.ErrUpstreamFailure, codes.Internal},
}

// toStatus maps the error taxonomy to gRPC status codes. Anything else is
// logged and reported as a bare internal error.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, e.err.Error())
		}
	}
	s.logger.Error(ctx, "internal error", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func authResponse(sess *services.Session) *identityrpc.AuthResponse {
	return &identityrpc.AuthResponse{
		UID:          sess.User.ID,
		Email:        sess.User.Email,
		DisplayName:  sess.User.DisplayName,
		PhotoURL:     sess.User.PhotoURL,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
		IsNewUser:    sess.IsNewUser,
	}
}

func (s *GRPCServer) session(ctx context.Context, sess *services.Session, err error) (*identityrpc.AuthResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return authResponse(sess), nil
}

func (s *GRPCServer) SignUp(ctx context.Context, req *identityrpc.SignUpRequest) (*identityrpc.AuthResponse, error) {
	sess, err := s.identity.SignUp(ctx, req.Email, req.Password, req.DisplayName)
	if err == nil {
		s.logger.Info(ctx, "Registered", "uid", sess.User.ID)
	}
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) SignIn(ctx context.Context, req *identityrpc.SignInRequest) (*identityrpc.AuthResponse, error) {
	sess, err := s.identity.SignIn(ctx, req.Email, req.Password)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) SignInWithIdp(ctx context.Context, req *identityrpc.SignInWithIdpRequest) (*identityrpc.AuthResponse, error) {
	sess, err := s.identity.SignInWithIdp(ctx, req.Provider, req.AccessToken)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *identityrpc.RefreshTokenRequest) (*identityrpc.AuthResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "missing refresh token")
	}
	sess, err := s.identity.RefreshToken(ctx, req.RefreshToken)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) SignOut(ctx context.Context, req *identityrpc.SignOutRequest) (*identityrpc.SignOutResponse, error) {
	if err := s.identity.SignOut(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &identityrpc.SignOutResponse{}, nil
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *identityrpc.PresignUploadRequest) (*identityrpc.PresignUploadResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	up, err := s.uploads.PresignUpload(ctx, userID, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &identityrpc.PresignUploadResponse{Key: up.Key, UploadURL: up.UploadURL, PublicURL: up.PublicURL}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *identityrpc.PingRequest) (*identityrpc.PingResponse, error) {
	return &identityrpc.PingResponse{Status: identityrpc.StatusOK}, nil
}
