// Package services is the session layer of the Caliope client: the session
// controller, the mutation facade and the features built on them (chat,
// journal, daily tip, dashboard insights, admin views).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/auth"
	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultLogoutTimeout = 5 * time.Second
	eventTimeout         = 30 * time.Second
)

const (
	msgSignedIn        = "Sesión iniciada correctamente"
	msgRegistered      = "Cuenta creada correctamente."
	msgSignedInGoogle  = "Sesión iniciada con Google correctamente"
	msgDemoStarted     = "Has entrado en el modo de demostración."
	msgProfileLoadFail = "No se pudo cargar tu perfil."
)

type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6"`
}

type SessionConfig struct {
	Provider      auth.Provider
	Adapter       persistence.Adapter
	Store         *profile.Store
	Notifier      gamification.Notifier
	Catalog       *catalog.Catalog
	Logger        logging.Logger
	LogoutTimeout time.Duration
}

// Session drives the session state machine and reconciles the auth
// provider's events with the profile store.
type Session struct {
	provider      auth.Provider
	adapter       persistence.Adapter
	store         *profile.Store
	notifier      gamification.Notifier
	catalog       *catalog.Catalog
	logger        logging.Logger
	validate      *validator.Validate
	logoutTimeout time.Duration
	now           func() time.Time

	// mu serializes reconciliation and guards the fields below.
	mu              sync.Mutex
	seq             uint64
	establishedSeq  uint64
	signOutSeq      uint64
	pendingSignOuts int
	signOutWaiters  []chan struct{}
	// demoSignOut is closed once the sign-out started by StartDemoMode
	// has returned.
	demoSignOut chan struct{}

	unsubscribe func()
}

// NewSession subscribes to the provider for the lifetime of the session.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		provider:      cfg.Provider,
		adapter:       cfg.Adapter,
		store:         cfg.Store,
		notifier:      cfg.Notifier,
		catalog:       cfg.Catalog,
		logger:        cfg.Logger.With("module", "session"),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logoutTimeout: cfg.LogoutTimeout,
		now:           time.Now,
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.logoutTimeout <= 0 {
		s.logoutTimeout = DefaultLogoutTimeout
	}
	s.unsubscribe = s.provider.OnSessionChange(s.handleSessionChange)
	return s
}

func (s *Session) Mode() profile.Mode       { return s.store.Mode() }
func (s *Session) Current() *models.Profile { return s.store.Current() }

// Close stops listening to provider events. The provider is not closed.
func (s *Session) Close() {
	s.unsubscribe()
}

func (s *Session) handleSessionChange(id models.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == nil && s.pendingSignOuts > 0 {
		s.pendingSignOuts--
		defer s.releaseWaitersLocked()
		if s.establishedSeq > s.signOutSeq {
			// a newer sign-in already replaced the session being closed
			return
		}
	}
	if s.store.Mode() == profile.Demo {
		return
	}
	if id == nil {
		s.clearLocked(ctx)
		return
	}
	if _, err := s.establishLocked(ctx, id, id.Seed()); err != nil {
		s.logger.Error(ctx, "session event not applied", "id", id.ProfileID(), "error", err)
		s.store.Clear()
		s.notifier.Notify(msgProfileLoadFail, models.KindError)
	}
}

func (s *Session) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Session) releaseWaitersLocked() {
	for _, ch := range s.signOutWaiters {
		close(ch)
	}
	s.signOutWaiters = nil
}

func (s *Session) clearLocked(ctx context.Context) {
	s.store.Clear()
	if err := s.adapter.RemoveCurrentPointer(ctx); err != nil {
		s.logger.Warn(ctx, "current pointer not removed", "error", err)
	}
}

// establishLocked loads the profile of id, creating it on first sign-in,
// and makes it current. Nothing is loaded when it is current already.
func (s *Session) establishLocked(ctx context.Context, id models.Identity, seed models.Seed) (*models.Profile, error) {
	mode, cur := s.store.Snapshot()
	if mode == profile.Authenticated && cur != nil && cur.ID == id.ProfileID() {
		return cur, nil
	}

	p, err := s.adapter.LoadCurrent(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		p, err = s.adapter.CreateProfile(ctx, id, seed)
	}
	if err != nil {
		return nil, err
	}

	s.store.Replace(profile.Authenticated, p)
	s.establishedSeq = s.nextSeqLocked()
	s.logger.Info(ctx, "session established", "id", p.ID)
	return p.Clone(), nil
}

// requestSignOutLocked records a sign-out this session asked for, so that
// the nil event it produces can be told apart from a stale one.
func (s *Session) requestSignOutLocked() chan struct{} {
	s.pendingSignOuts++
	s.signOutSeq = s.nextSeqLocked()
	ch := make(chan struct{})
	s.signOutWaiters = append(s.signOutWaiters, ch)
	return ch
}

// authenticate runs one provider call under the Authenticating mode and
// loads the resulting profile. On failure the previous session is put back
// when it was a real one, otherwise the store is cleared.
func (s *Session) authenticate(ctx context.Context, seedName string, call func() (models.Identity, error)) (*models.Profile, error) {
	if err := s.awaitDemoSignOut(ctx); err != nil {
		return nil, err
	}

	prevMode, prev := s.store.Snapshot()
	if prevMode == profile.Demo {
		prevMode, prev = profile.Unauthenticated, nil
	}
	s.store.Replace(profile.Authenticating, nil)

	restore := func() {
		if prevMode == profile.Authenticated {
			s.store.Replace(prevMode, prev)
			return
		}
		s.store.Clear()
	}

	id, err := call()
	if err != nil {
		restore()
		return nil, err
	}

	seed := id.Seed()
	if seed.Name == "" {
		seed.Name = seedName
	}

	s.mu.Lock()
	p, err := s.establishLocked(ctx, id, seed)
	s.mu.Unlock()
	if err != nil {
		restore()
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrInvalidArgument)
	}
	p, err := s.authenticate(ctx, "", func() (models.Identity, error) {
		return s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(msgSignedIn, models.KindSuccess)
	return p, nil
}

func (s *Session) validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
}

// Register creates the account and signs in. A taken email returns
// common.ErrDuplicateIdentity on both backends.
func (s *Session) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, s.validationError(err)
	}

	p, err := s.authenticate(ctx, in.Name, func() (models.Identity, error) {
		return s.provider.SignUp(ctx, in.Email, in.Password, in.Name)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(msgRegistered, models.KindSuccess)
	return p, nil
}

func (s *Session) FederatedLoginURL(state string) (string, error) {
	return s.provider.FederatedLoginURL(state)
}

// LoginWithFederated finishes a Google sign-in from the pasted callback. A
// cancelled flow returns a nil profile and no error.
func (s *Session) LoginWithFederated(ctx context.Context, callback string) (*models.Profile, error) {
	p, err := s.authenticate(ctx, "", func() (models.Identity, error) {
		return s.provider.SignInWithFederated(ctx, callback)
	})
	if errors.Is(err, common.ErrUserCancelled) {
		s.logger.Info(ctx, "federated sign-in cancelled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(msgSignedInGoogle, models.KindSuccess)
	return p, nil
}

// Restore resumes the session the provider remembers, if any.
func (s *Session) Restore(ctx context.Context) (*models.Profile, error) {
	var none bool
	p, err := s.authenticate(ctx, "", func() (models.Identity, error) {
		id, err := s.provider.Restore(ctx)
		if err == nil && id == nil {
			none = true
			return nil, common.ErrNoActiveSession
		}
		return id, err
	})
	if none {
		return nil, nil
	}
	return p, err
}

// StartDemoMode installs a fresh copy of the demo profile. A real session
// is signed out in the background; its events no longer touch the store.
func (s *Session) StartDemoMode(ctx context.Context) *models.Profile {
	s.mu.Lock()
	mode := s.store.Mode()
	demo := s.catalog.DemoProfile(s.now())
	s.store.Replace(profile.Demo, demo)
	if mode == profile.Authenticated || mode == profile.Authenticating {
		s.requestSignOutLocked()
		done := make(chan struct{})
		s.demoSignOut = done
		go func() {
			defer close(done)
			if err := s.provider.SignOut(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn(ctx, "background sign out failed", "error", err)
			}
		}()
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "demo mode started")
	s.notifier.Notify(msgDemoStarted, models.KindInfo)
	return demo
}

// awaitDemoSignOut blocks until the provider has finished signing out the
// session that demo mode replaced, so its side effects cannot land on a
// newer session.
func (s *Session) awaitDemoSignOut(ctx context.Context) error {
	s.mu.Lock()
	done := s.demoSignOut
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for sign out: %w", ctx.Err())
	}

	s.mu.Lock()
	if s.demoSignOut == done {
		s.demoSignOut = nil
	}
	s.mu.Unlock()
	return nil
}

// Logout ends the session. A demo profile is discarded in memory. A real
// session is signed out and Logout waits for the provider to confirm; if
// the confirmation does not arrive within the logout timeout the store is
// cleared anyway.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	switch s.store.Mode() {
	case profile.Unauthenticated:
		s.mu.Unlock()
		return nil
	case profile.Demo:
		s.store.Clear()
		s.mu.Unlock()
		s.logger.Info(ctx, "demo mode ended")
		return nil
	}
	confirmed := s.requestSignOutLocked()
	s.mu.Unlock()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn(ctx, "sign out failed", "error", err)
	}

	timer := time.NewTimer(s.logoutTimeout)
	defer timer.Stop()
	select {
	case <-confirmed:
		return nil
	case <-timer.C:
		s.logger.Warn(ctx, "sign out not confirmed, clearing session")
	case <-ctx.Done():
		s.logger.Warn(ctx, "logout interrupted, clearing session", "error", ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Mode() != profile.Demo && s.establishedSeq < s.signOutSeq {
		s.clearLocked(context.WithoutCancel(ctx))
	}
	return nil
}
