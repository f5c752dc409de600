package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/dbx"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/config"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/models"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/repositories/refreshtokens"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/repositories/users"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	next    int

	CreateErr   error
	GetErr      error
	LastCreated *models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrDuplicateIdentity
	}
	f.next++
	u.ID = fmt.Sprintf("u-%d", f.next)
	u.CreatedAt = time.Now()
	cp := *u
	f.byEmail[u.Email] = &cp
	f.LastCreated = &cp
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken

	CreateErr         error
	DeleteExpiredErr  error
	LastDeleted       string
	LastExpiredUserID string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	f.LastDeleted = token
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastExpiredUserID = userID
	if f.DeleteExpiredErr != nil {
		return 0, f.DeleteExpiredErr
	}
	var n int64
	for k, rt := range f.tokens {
		if rt.UserID == userID && rt.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type fakeRepoManager struct {
	u *fakeUsers
	r *fakeTokens
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }

type fakeVerifier struct {
	Identity  *IdpIdentity
	Err       error
	LastToken string
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*IdpIdentity, error) {
	f.LastToken = token
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Identity, nil
}

type identityFixture struct {
	svc      *IdentityService
	mock     sqlmock.Sqlmock
	users    *fakeUsers
	tokens   *fakeTokens
	verifier *fakeVerifier
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &identityFixture{
		mock:     mock,
		users:    newFakeUsers(),
		tokens:   newFakeTokens(),
		verifier: &fakeVerifier{},
	}
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	f.svc = NewIdentityService(db, &fakeRepoManager{u: f.users, r: f.tokens}, f.verifier, cfg, logging.Nop{})
	return f
}

// expectTx registers one committed transaction on the mock.
func (f *identityFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}
