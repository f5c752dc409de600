// Package services holds the gateway's business logic: password and
// identity-provider sign-in, JWT plus refresh token issuance with rotation,
// and presigned journal image uploads.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/cryptox"
	"github.com/aquemenida/caliope-ai-studio/internal/dbx"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/auth"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/config"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/models"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/repositories/repomanager"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"github.com/go-playground/validator/v10"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is the outcome of every call that signs a user in.
type Session struct {
	User      *models.User
	Tokens    TokenPair
	IsNewUser bool
}

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"min=6"`
}

// IdentityService authenticates users and manages their tokens.
type IdentityService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	verifier                     IdpVerifier
	validate                     *validator.Validate
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, v IdpVerifier, cfg *config.Config, l logging.Logger) *IdentityService {
	return &IdentityService{
		db:                           db,
		repomanager:                  m,
		verifier:                     v,
		validate:                     validator.New(),
		logger:                       l,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account and signs it in. A registered email
// yields common.ErrDuplicateIdentity.
func (s *IdentityService) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Struct(signUpInput{Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*Session, error) {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			DisplayName:  strings.TrimSpace(displayName),
			PasswordHash: hash,
			Provider:     models.ProviderPassword,
		})
		if err != nil {
			return nil, err
		}
		return s.newSession(ctx, tx, user, true)
	})
}

// SignIn checks a password. Unknown emails, provider-only accounts and wrong
// passwords all yield common.ErrInvalidCredentials.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, common.ErrInvalidCredentials
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.newSession(ctx, s.db, user, false)
}

// SignInWithIdp resolves the provider token to an identity and signs it in,
// creating the account on first use. Accounts are matched by email.
func (s *IdentityService) SignInWithIdp(ctx context.Context, provider, accessToken string) (*Session, error) {
	if provider != models.ProviderGoogle {
		return nil, fmt.Errorf("%w: unsupported provider %q", common.ErrInvalidArgument, provider)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing provider token", common.ErrInvalidArgument)
	}

	identity, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(identity.Email)

	users := s.repomanager.Users(s.db)
	user, err := users.GetByEmail(ctx, email)
	if err == nil {
		return s.newSession(ctx, s.db, user, false)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	user, err = users.Create(ctx, &models.User{
		Email:       email,
		DisplayName: identity.Name,
		PhotoURL:    identity.Picture,
		Provider:    models.ProviderGoogle,
	})
	if errors.Is(err, common.ErrDuplicateIdentity) {
		// created concurrently by another sign-in
		if user, err = users.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
		return s.newSession(ctx, s.db, user, false)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account created from identity provider", "provider", provider, "uid", user.ID)
	return s.newSession(ctx, s.db, user, true)
}

// RefreshToken rotates refreshToken and returns a fresh session. Unknown
// tokens yield common.ErrInvalidToken and expired ones
// common.ErrRefreshTokenExpired.
func (s *IdentityService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*Session, error) {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return nil, err
		}
		return s.newSession(ctx, tx, user, false)
	})
}

// SignOut revokes refreshToken and prunes the user's expired tokens.
// Unknown tokens are ignored.
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, refreshToken); err != nil {
		return err
	}
	if _, err := repo.DeleteExpired(ctx, token.UserID, s.now()); err != nil {
		s.logger.Warn(ctx, "pruning expired refresh tokens failed", "uid", token.UserID, "error", err)
	}
	return nil
}

// UserIDFromAccessToken validates an access token.
func (s *IdentityService) UserIDFromAccessToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *IdentityService) newSession(ctx context.Context, tx dbx.DBTX, user *models.User, isNew bool) (*Session, error) {
	pair, err := s.generateTokenPair(ctx, user.ID, tx)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tokens: *pair, IsNewUser: isNew}, nil
}

func (s *IdentityService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
