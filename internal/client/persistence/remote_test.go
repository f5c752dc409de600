package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/docstore"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	*docstore.MemoryStore
	LastUpdate docstore.Update
	Sets       int
	UpdateErr  error
}

func (r *recordingStore) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	r.Sets++
	return r.MemoryStore.Set(ctx, collection, id, doc)
}

func (r *recordingStore) Update(ctx context.Context, collection, id string, u docstore.Update) error {
	r.LastUpdate = u
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	return r.MemoryStore.Update(ctx, collection, id, u)
}

func newRemote() (*RemoteAdapter, *recordingStore) {
	store := &recordingStore{MemoryStore: docstore.NewMemoryStore()}
	a := NewRemoteAdapter(store)
	a.now = func() time.Time { return fixedNow }
	return a, store
}

var remoteID = models.RemoteIdentity{UID: "uid-123", Email: "ana@example.com", DisplayName: "Ana", PhotoURL: "https://photo"}

func TestRemote_NilStoreFailsFast(t *testing.T) {
	a := NewRemoteAdapter(nil)
	ctx := context.Background()

	_, err := a.LoadRoster(ctx)
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	_, err = a.LoadCurrent(ctx, remoteID)
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	_, err = a.CreateProfile(ctx, remoteID, remoteID.Seed())
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	assert.ErrorIs(t, a.Persist(ctx, &models.Profile{ID: "x"}), common.ErrBackendUnavailable)
	assert.NoError(t, a.RemoveCurrentPointer(ctx))
}

func TestRemote_CreateIsIdempotent(t *testing.T) {
	a, store := newRemote()
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, remoteID, remoteID.Seed())
	require.NoError(t, err)
	assert.Equal(t, models.ProfileID("uid-123"), p.ID)
	assert.Equal(t, "https://photo", p.Avatar)

	again, err := a.CreateProfile(ctx, remoteID, models.Seed{Name: "Otro"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Name)
	assert.Equal(t, 1, store.Sets)
}

func TestRemote_LoadCurrentNotFound(t *testing.T) {
	a, _ := newRemote()
	_, err := a.LoadCurrent(context.Background(), remoteID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemote_RoundTrip(t *testing.T) {
	a, _ := newRemote()
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, remoteID, remoteID.Seed())
	require.NoError(t, err)

	p.Experience = 510
	p.Level = 6
	p.Achievements = []string{"first-use", "level-5"}
	p.Feedback[2] = models.VerdictPositive
	p.History = []models.HistoryItem{{Date: fixedNow, Query: "estrés", Recommendations: []models.Recommendation{}}}
	p.Appointments = []models.Appointment{{ServiceID: 9, ServiceName: "Coaching", Date: fixedNow.Add(48 * time.Hour)}}
	p.Journal = []models.JournalEntry{{ID: "j", Date: fixedNow, UserText: "t", AIAnalysis: "a"}}
	p.Bio = "bio"
	p.GoalID = "salud-mental"
	p.Membership = models.TierPremium

	require.NoError(t, a.Persist(ctx, p))

	got, err := a.LoadCurrent(ctx, remoteID)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRemote_PersistSendsOnlyRequestedGroups(t *testing.T) {
	a, store := newRemote()
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, remoteID, remoteID.Seed())
	require.NoError(t, err)
	p.Experience = 15
	p.Achievements = []string{"first-use"}
	p.Feedback[4] = models.VerdictPositive
	p.PasswordHash = "never-sent"

	require.NoError(t, a.Persist(ctx, p, FieldFeedback, FieldGamification))

	u := store.LastUpdate
	assert.ElementsMatch(t, []string{"feedback", "experience", "level"}, keys(u.Set))
	assert.Equal(t, map[string][]any{"achievements": {"first-use"}}, u.Union)
	assert.Equal(t, map[string]any{"4": "positive"}, u.Set["feedback"])
}

func TestRemote_PersistClearedGoal(t *testing.T) {
	a, _ := newRemote()
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, remoteID, remoteID.Seed())
	require.NoError(t, err)
	p.GoalID = "reducir-estres"
	require.NoError(t, a.Persist(ctx, p, FieldPreferences))
	p.GoalID = ""
	require.NoError(t, a.Persist(ctx, p, FieldPreferences))

	got, err := a.LoadCurrent(ctx, remoteID)
	require.NoError(t, err)
	assert.Empty(t, got.GoalID)
}

func TestRemote_PersistWrapsStoreError(t *testing.T) {
	a, store := newRemote()
	boom := errors.New("boom")
	store.UpdateErr = boom

	err := a.Persist(context.Background(), &models.Profile{ID: "uid"}, FieldMembership)
	assert.ErrorIs(t, err, boom)
}

func TestRemote_LoadRosterAndEmailCheck(t *testing.T) {
	a, _ := newRemote()
	ctx := context.Background()

	_, err := a.CreateProfile(ctx, remoteID, remoteID.Seed())
	require.NoError(t, err)
	_, err = a.CreateProfile(ctx, models.RemoteIdentity{UID: "uid-456", Email: "bea@example.com"}, models.Seed{})
	require.NoError(t, err)

	roster, err := a.LoadRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "bea", roster[1].Name)

	assert.NoError(t, a.CheckEmailAvailable(ctx, "bea@example.com", "uid-123"))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
