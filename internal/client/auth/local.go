package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/federated"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/cryptox"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

// LocalProvider authenticates against the profile roster kept in SQLite.
// Passwords are stored as argon2id hashes.
type LocalProvider struct {
	roster *persistence.LocalAdapter
	google *federated.Google
	events *Broadcaster
	logger logging.Logger
}

func NewLocalProvider(roster *persistence.LocalAdapter, google *federated.Google, l logging.Logger) *LocalProvider {
	return &LocalProvider{
		roster: roster,
		google: google,
		events: NewBroadcaster(),
		logger: l.With("module", "local_auth"),
	}
}

// credentialFor rebuilds the roster credential of p.
func credentialFor(p *models.Profile) (models.LocalCredential, error) {
	id, err := strconv.ParseInt(string(p.ID), 10, 64)
	if err != nil {
		return models.LocalCredential{}, fmt.Errorf("roster id %q: %w", p.ID, err)
	}
	c := models.LocalCredential{ID: id, Email: p.Email, Name: p.Name, PasswordHash: p.PasswordHash}
	if strings.HasPrefix(p.Avatar, "http") {
		c.PhotoURL = p.Avatar
	}
	return c, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	prof, err := p.roster.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if prof.PasswordHash == "" {
		// federated-only account
		return nil, common.ErrInvalidCredentials
	}
	ok, err := cryptox.VerifyPassword(prof.PasswordHash, []byte(password))
	if err != nil {
		p.logger.Warn(ctx, "stored password hash unreadable", "id", prof.ID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	cred, err := credentialFor(prof)
	if err != nil {
		return nil, err
	}
	p.events.Publish(cred)
	return cred, nil
}

// SignUp creates the roster entry right away; a duplicate email returns
// common.ErrDuplicateIdentity and leaves the roster untouched.
func (p *LocalProvider) SignUp(ctx context.Context, email, password, name string) (models.Identity, error) {
	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, err
	}
	cred := models.LocalCredential{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name), PasswordHash: hash}
	prof, err := p.roster.CreateProfile(ctx, cred, cred.Seed())
	if err != nil {
		return nil, err
	}
	created, err := credentialFor(prof)
	if err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "local account created", "id", prof.ID)
	p.events.Publish(created)
	return created, nil
}

func (p *LocalProvider) FederatedLoginURL(state string) (string, error) {
	return p.google.AuthCodeURL(state)
}

// SignInWithFederated maps the Google account to the roster entry with the
// same email, or creates a password-less one.
func (p *LocalProvider) SignInWithFederated(ctx context.Context, callback string) (models.Identity, error) {
	acc, err := p.google.Exchange(ctx, callback)
	if err != nil {
		return nil, err
	}

	prof, err := p.roster.FindByEmail(ctx, acc.Email)
	switch {
	case errors.Is(err, common.ErrNotFound):
		cred := models.LocalCredential{Email: acc.Email, Name: acc.Name, PhotoURL: acc.Picture}
		prof, err = p.roster.CreateProfile(ctx, cred, cred.Seed())
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	cred, err := credentialFor(prof)
	if err != nil {
		return nil, err
	}
	p.events.Publish(cred)
	return cred, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	err := p.roster.RemoveCurrentPointer(ctx)
	p.events.Publish(nil)
	return err
}

// Restore resumes the profile left in the current pointer.
func (p *LocalProvider) Restore(ctx context.Context) (models.Identity, error) {
	cur, err := p.roster.CurrentPointer(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	cred, err := credentialFor(cur)
	if err != nil {
		return nil, err
	}
	p.events.Publish(cred)
	return cred, nil
}

func (p *LocalProvider) OnSessionChange(h Handler) func() {
	return p.events.Subscribe(h)
}

func (p *LocalProvider) Close() error {
	p.events.Close()
	return nil
}
