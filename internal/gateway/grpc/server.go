// Package grpc exposes the identity gateway over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/aquemenida/caliope-ai-studio/internal/gateway/services"
	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"google.golang.org/grpc"
)

type identityService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*services.Session, error)
	SignIn(ctx context.Context, email, password string) (*services.Session, error)
	SignInWithIdp(ctx context.Context, provider, accessToken string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
}

type uploadService interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*services.Upload, error)
}

type GRPCServer struct {
	address   string
	identity  identityService
	uploads   uploadService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, is identityService, us uploadService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		identity:  is,
		uploads:   us,
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	identityrpc.RegisterIdentityServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	return srv.Serve(lis)
}
