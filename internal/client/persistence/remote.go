package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/docstore"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// UsersCollection holds one document per remote account, keyed by UID.
const UsersCollection = "users"

// RemoteAdapter stores profiles in a document store. Email uniqueness is
// left to the identity gateway.
type RemoteAdapter struct {
	store docstore.Store
	now   func() time.Time
}

// NewRemoteAdapter accepts a nil store; every call then fails with
// common.ErrBackendUnavailable.
func NewRemoteAdapter(store docstore.Store) *RemoteAdapter {
	return &RemoteAdapter{store: store, now: time.Now}
}

func (a *RemoteAdapter) available() error {
	if a.store == nil {
		return fmt.Errorf("document store not configured: %w", common.ErrBackendUnavailable)
	}
	return nil
}

func toDocument(p *models.Profile) (docstore.Document, error) {
	clean := p.Clone()
	clean.PasswordHash = ""
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc docstore.Document) (*models.Profile, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

func (a *RemoteAdapter) LoadRoster(ctx context.Context) ([]*models.Profile, error) {
	if err := a.available(); err != nil {
		return nil, err
	}
	docs, err := a.store.List(ctx, UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]*models.Profile, 0, len(docs))
	for _, d := range docs {
		p, err := fromDocument(d)
		if err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *RemoteAdapter) LoadCurrent(ctx context.Context, id models.Identity) (*models.Profile, error) {
	if err := a.available(); err != nil {
		return nil, err
	}
	doc, err := a.store.Get(ctx, UsersCollection, string(id.ProfileID()))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", id.ProfileID(), err)
	}
	p, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id.ProfileID(), err)
	}
	if p.ID == "" {
		p.ID = id.ProfileID()
	}
	return p, nil
}

// CreateProfile returns the stored profile when one already exists, so a
// second call for the same identity is harmless.
func (a *RemoteAdapter) CreateProfile(ctx context.Context, id models.Identity, seed models.Seed) (*models.Profile, error) {
	existing, err := a.LoadCurrent(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	p := models.NewProfile(id.ProfileID(), id.EmailAddress(), seed, a.now())
	doc, err := toDocument(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := a.store.Set(ctx, UsersCollection, string(p.ID), doc); err != nil {
		return nil, fmt.Errorf("create profile %s: %w", p.ID, err)
	}
	return p, nil
}

// Persist sends only the requested field groups. Achievements are merged
// with an array union so concurrent unlocks from another device survive.
func (a *RemoteAdapter) Persist(ctx context.Context, p *models.Profile, fields ...Field) error {
	if err := a.available(); err != nil {
		return err
	}
	u, err := buildUpdate(p, fields)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if u.Empty() {
		return nil
	}
	if err := a.store.Update(ctx, UsersCollection, string(p.ID), u); err != nil {
		return fmt.Errorf("persist profile %s: %w", p.ID, err)
	}
	return nil
}

func buildUpdate(p *models.Profile, fields []Field) (docstore.Update, error) {
	if len(fields) == 0 {
		fields = allFields
	}
	doc, err := toDocument(p)
	if err != nil {
		return docstore.Update{}, err
	}
	u := docstore.Update{Set: map[string]any{}}
	for _, f := range fields {
		for _, key := range fieldKeys[f] {
			if key == "achievements" {
				values := make([]any, len(p.Achievements))
				for i, a := range p.Achievements {
					values[i] = a
				}
				u.Union = map[string][]any{key: values}
				continue
			}
			u.Set[key] = doc[key]
		}
	}
	return u, nil
}

func (a *RemoteAdapter) RemoveCurrentPointer(context.Context) error { return nil }

func (a *RemoteAdapter) CheckEmailAvailable(context.Context, string, models.ProfileID) error {
	return nil
}
