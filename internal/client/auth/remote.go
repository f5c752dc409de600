package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aquemenida/caliope-ai-studio/internal/client/client"
	"github.com/aquemenida/caliope-ai-studio/internal/client/federated"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/repositories/metadata"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/dbx"
	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

// RemoteProvider signs in through the identity gateway and keeps the
// refresh token in the local metadata table so the session survives a
// restart.
type RemoteProvider struct {
	client client.Client
	db     *sql.DB
	google *federated.Google
	events *Broadcaster
	logger logging.Logger
}

func NewRemoteProvider(c client.Client, db *sql.DB, google *federated.Google, l logging.Logger) *RemoteProvider {
	return &RemoteProvider{
		client: c,
		db:     db,
		google: google,
		events: NewBroadcaster(),
		logger: l.With("module", "remote_auth"),
	}
}

func identityFrom(resp *identityrpc.AuthResponse) models.RemoteIdentity {
	return models.RemoteIdentity{UID: resp.UID, Email: resp.Email, DisplayName: resp.DisplayName, PhotoURL: resp.PhotoURL}
}

// saveSession stores the refresh token, uid and email in one transaction.
func (p *RemoteProvider) saveSession(ctx context.Context, resp *identityrpc.AuthResponse) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.MetaRefreshToken, []byte(resp.RefreshToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, common.MetaSessionUID, []byte(resp.UID)); err != nil {
			return err
		}
		return repo.Set(ctx, common.MetaSessionEmail, []byte(resp.Email))
	})
}

func (p *RemoteProvider) clearSession(ctx context.Context) error {
	return metadata.NewSQLiteRepository(p.db).DeletePrefix(ctx, "session.")
}

func (p *RemoteProvider) established(ctx context.Context, resp *identityrpc.AuthResponse) (models.Identity, error) {
	if err := p.saveSession(ctx, resp); err != nil {
		// the gateway session is valid; only restart-resume is lost
		p.logger.Warn(ctx, "session not saved locally", "error", err)
	}
	id := identityFrom(resp)
	p.events.Publish(id)
	return id, nil
}

func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	resp, err := p.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return p.established(ctx, resp)
}

func (p *RemoteProvider) SignUp(ctx context.Context, email, password, name string) (models.Identity, error) {
	resp, err := p.client.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return p.established(ctx, resp)
}

func (p *RemoteProvider) FederatedLoginURL(state string) (string, error) {
	return p.google.AuthCodeURL(state)
}

func (p *RemoteProvider) SignInWithFederated(ctx context.Context, callback string) (models.Identity, error) {
	acc, err := p.google.Exchange(ctx, callback)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.SignInWithIdp(ctx, acc.AccessToken, acc.IDToken)
	if err != nil {
		return nil, fmt.Errorf("federated sign in: %w", err)
	}
	if resp.DisplayName == "" {
		resp.DisplayName = acc.Name
	}
	if resp.PhotoURL == "" {
		resp.PhotoURL = acc.Picture
	}
	return p.established(ctx, resp)
}

// SignOut revokes the gateway session and forgets the stored token. The
// sign-out event is published even when the gateway is unreachable.
func (p *RemoteProvider) SignOut(ctx context.Context) error {
	if err := p.client.SignOut(ctx); err != nil {
		p.logger.Warn(ctx, "gateway sign out failed", "error", err)
	}
	err := p.clearSession(ctx)
	p.events.Publish(nil)
	return err
}

// Restore exchanges the stored refresh token for a new session. A rejected
// token is dropped and reported as no session; an unreachable gateway is
// returned as an error.
func (p *RemoteProvider) Restore(ctx context.Context) (models.Identity, error) {
	token, err := metadata.NewSQLiteRepository(p.db).Get(ctx, common.MetaRefreshToken)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 {
		return nil, nil
	}

	resp, err := p.client.Resume(ctx, string(token))
	if errors.Is(err, common.ErrInvalidCredentials) {
		p.logger.Info(ctx, "stored session expired")
		return nil, p.clearSession(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	return p.established(ctx, resp)
}

func (p *RemoteProvider) OnSessionChange(h Handler) func() {
	return p.events.Subscribe(h)
}

func (p *RemoteProvider) Close() error {
	p.events.Close()
	return p.client.Close()
}
