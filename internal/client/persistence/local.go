package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/repositories/metadata"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/dbx"
)

// envelopeVersion is the layout version of both local records.
const envelopeVersion = 1

type rosterEnvelope struct {
	Version int               `json:"version"`
	Users   []*models.Profile `json:"users"`
}

type currentEnvelope struct {
	Version int             `json:"version"`
	User    *models.Profile `json:"user"`
}

// LocalAdapter keeps the whole roster as one record of the SQLite metadata
// table, next to a pointer holding the signed-in profile. Every write runs
// in a single transaction.
type LocalAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewLocalAdapter(db *sql.DB) *LocalAdapter {
	return &LocalAdapter{db: db, now: time.Now}
}

func readRoster(ctx context.Context, repo metadata.Repository) ([]*models.Profile, error) {
	raw, err := repo.Get(ctx, common.MetaRoster)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var env struct {
		Version int               `json:"version"`
		Users   []json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("roster version %d is not supported", env.Version)
	}
	out := make([]*models.Profile, 0, len(env.Users))
	for _, u := range env.Users {
		p, err := decodeProfile(u)
		if err != nil {
			return nil, fmt.Errorf("decode roster entry: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func writeRoster(ctx context.Context, repo metadata.Repository, users []*models.Profile) error {
	if users == nil {
		users = []*models.Profile{}
	}
	raw, err := json.Marshal(rosterEnvelope{Version: envelopeVersion, Users: users})
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	return repo.Set(ctx, common.MetaRoster, raw)
}

func writeCurrent(ctx context.Context, repo metadata.Repository, p *models.Profile) error {
	raw, err := json.Marshal(currentEnvelope{Version: envelopeVersion, User: p})
	if err != nil {
		return fmt.Errorf("encode current profile: %w", err)
	}
	return repo.Set(ctx, common.MetaCurrent, raw)
}

func findByID(users []*models.Profile, id models.ProfileID) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func findByEmail(users []*models.Profile, email string) int {
	for i, u := range users {
		if strings.EqualFold(u.Email, email) {
			return i
		}
	}
	return -1
}

func (a *LocalAdapter) LoadRoster(ctx context.Context) ([]*models.Profile, error) {
	users, err := readRoster(ctx, metadata.NewSQLiteRepository(a.db))
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return users, nil
}

// FindByEmail returns the roster entry for email, or common.ErrNotFound.
func (a *LocalAdapter) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	users, err := a.LoadRoster(ctx)
	if err != nil {
		return nil, err
	}
	i := findByEmail(users, email)
	if i < 0 {
		return nil, common.ErrNotFound
	}
	return users[i], nil
}

// LoadCurrent reads the roster entry of id and makes it the current pointer.
func (a *LocalAdapter) LoadCurrent(ctx context.Context, id models.Identity) (*models.Profile, error) {
	return dbx.WithTxResult(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Profile, error) {
		repo := metadata.NewSQLiteRepository(tx)
		users, err := readRoster(ctx, repo)
		if err != nil {
			return nil, err
		}
		i := findByID(users, id.ProfileID())
		if i < 0 {
			return nil, common.ErrNotFound
		}
		if err := writeCurrent(ctx, repo, users[i]); err != nil {
			return nil, err
		}
		return users[i], nil
	})
}

// CreateProfile appends a profile for id to the roster. A LocalCredential
// with a zero ID gets a fresh one. An email already in the roster returns
// common.ErrDuplicateIdentity and nothing is written.
func (a *LocalAdapter) CreateProfile(ctx context.Context, id models.Identity, seed models.Seed) (*models.Profile, error) {
	return dbx.WithTxResult(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Profile, error) {
		repo := metadata.NewSQLiteRepository(tx)
		users, err := readRoster(ctx, repo)
		if err != nil {
			return nil, err
		}
		if findByEmail(users, id.EmailAddress()) >= 0 {
			return nil, common.ErrDuplicateIdentity
		}

		now := a.now()
		pid := id.ProfileID()
		var hash string
		if cred, ok := id.(models.LocalCredential); ok {
			if cred.ID == 0 {
				cred.ID = nextLocalID(users, now)
			}
			pid = cred.ProfileID()
			hash = cred.PasswordHash
		}
		if findByID(users, pid) >= 0 {
			return nil, common.ErrDuplicateIdentity
		}

		p := models.NewProfile(pid, id.EmailAddress(), seed, now)
		p.PasswordHash = hash
		users = append(users, p)

		if err := writeRoster(ctx, repo, users); err != nil {
			return nil, err
		}
		if err := writeCurrent(ctx, repo, p); err != nil {
			return nil, err
		}
		return p, nil
	})
}

// nextLocalID is the creation time in milliseconds, bumped past any id
// already in the roster.
func nextLocalID(users []*models.Profile, now time.Time) int64 {
	id := now.UnixMilli()
	for _, u := range users {
		if n, err := strconv.ParseInt(string(u.ID), 10, 64); err == nil && n >= id {
			id = n + 1
		}
	}
	return id
}

// Persist replaces the matching roster entry (or appends p) and refreshes
// the current pointer. Field groups are ignored: the roster is always
// rewritten whole. A stored password hash survives when p carries none.
func (a *LocalAdapter) Persist(ctx context.Context, p *models.Profile, _ ...Field) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		users, err := readRoster(ctx, repo)
		if err != nil {
			return err
		}
		next := p.Clone()
		if i := findByID(users, p.ID); i >= 0 {
			if next.PasswordHash == "" {
				next.PasswordHash = users[i].PasswordHash
			}
			users[i] = next
		} else {
			users = append(users, next)
		}
		if err := writeRoster(ctx, repo, users); err != nil {
			return err
		}
		return writeCurrent(ctx, repo, next)
	})
	if err != nil {
		return fmt.Errorf("persist profile %s: %w", p.ID, err)
	}
	return nil
}

// RemoveCurrentPointer forgets the signed-in profile. The roster keeps it.
func (a *LocalAdapter) RemoveCurrentPointer(ctx context.Context) error {
	return metadata.NewSQLiteRepository(a.db).Delete(ctx, common.MetaCurrent)
}

// CurrentPointer returns the profile saved as signed in, or nil.
func (a *LocalAdapter) CurrentPointer(ctx context.Context) (*models.Profile, error) {
	raw, err := metadata.NewSQLiteRepository(a.db).Get(ctx, common.MetaCurrent)
	if err != nil || raw == nil {
		return nil, err
	}
	var env struct {
		Version int             `json:"version"`
		User    json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode current profile: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("current profile version %d is not supported", env.Version)
	}
	if len(env.User) == 0 || string(env.User) == "null" {
		return nil, nil
	}
	return decodeProfile(env.User)
}

func (a *LocalAdapter) CheckEmailAvailable(ctx context.Context, email string, owner models.ProfileID) error {
	users, err := a.LoadRoster(ctx)
	if err != nil {
		return err
	}
	if i := findByEmail(users, email); i >= 0 && users[i].ID != owner {
		return common.ErrDuplicateIdentity
	}
	return nil
}
