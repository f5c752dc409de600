package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/client"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/repositories/metadata"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newLocal(t *testing.T) (*LocalAdapter, *sql.DB) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "caliope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	a := NewLocalAdapter(db)
	a.now = func() time.Time { return fixedNow }
	return a, db
}

func cred(email string) models.LocalCredential {
	return models.LocalCredential{Email: email, Name: "Ana", PasswordHash: "$argon2id$hash"}
}

func TestLocal_CreateAssignsIDAndPointer(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileID("1741593600000"), p.ID)
	assert.Equal(t, "A", p.Avatar)
	assert.Equal(t, "$argon2id$hash", p.PasswordHash)

	roster, err := a.LoadRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)

	cur, err := a.CurrentPointer(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, p.ID, cur.ID)

	// same millisecond, distinct id
	q, err := a.CreateProfile(ctx, cred("bea@example.com"), models.Seed{Name: "Bea"})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileID("1741593600001"), q.ID)
}

func TestLocal_DuplicateEmailLeavesRosterUnchanged(t *testing.T) {
	a, db := newLocal(t)
	ctx := context.Background()

	_, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{Name: "Ana"})
	require.NoError(t, err)

	repo := metadata.NewSQLiteRepository(db)
	before, err := repo.Get(ctx, common.MetaRoster)
	require.NoError(t, err)

	_, err = a.CreateProfile(ctx, cred("ANA@example.com"), models.Seed{Name: "Otra"})
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)

	after, err := repo.Get(ctx, common.MetaRoster)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLocal_PersistLoadRoundTrip(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{Name: "Ana"})
	require.NoError(t, err)

	p.Bio = "Me gusta el yoga"
	p.GoalID = "reducir-estres"
	p.Preferences = []string{"yoga", "meditación"}
	p.Experience = 130
	p.Level = 2
	p.Achievements = []string{"first-use"}
	p.Feedback[3] = models.VerdictNegative
	p.History = []models.HistoryItem{{
		Date:  fixedNow,
		Query: "me siento cansado",
		Recommendations: []models.Recommendation{{
			WellnessService: models.WellnessService{ID: 3, Name: "Entrenamiento", Keywords: []string{"fitness"}, Rating: 4.8},
			Reason:          "energía",
		}},
	}}
	p.Appointments = []models.Appointment{{ServiceID: 6, ServiceName: "Yoga Terapéutico", Date: fixedNow.AddDate(0, 0, 7)}}
	p.Journal = []models.JournalEntry{{ID: "j1", Date: fixedNow, ImageURL: "data:image/png;base64,AA==", UserText: "hoy", AIAnalysis: "bien"}}
	p.Membership = models.TierPremium

	require.NoError(t, a.Persist(ctx, p, FieldHistory))

	got, err := a.LoadCurrent(ctx, models.LocalCredential{ID: 1741593600000})
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLocal_PersistKeepsPasswordHash(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	p, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{})
	require.NoError(t, err)

	p.PasswordHash = ""
	p.Name = "Ana María"
	require.NoError(t, a.Persist(ctx, p))

	found, err := a.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$hash", found.PasswordHash)
	assert.Equal(t, "Ana María", found.Name)

	_, err = a.FindByEmail(ctx, "nadie@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocal_PersistAppendsUnknownProfile(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	p := models.NewProfile("42", "x@example.com", models.Seed{}, fixedNow)
	require.NoError(t, a.Persist(ctx, p))

	roster, err := a.LoadRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, models.ProfileID("42"), roster[0].ID)
}

func TestLocal_LoadCurrentNotFound(t *testing.T) {
	a, _ := newLocal(t)
	_, err := a.LoadCurrent(context.Background(), models.LocalCredential{ID: 1})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocal_RemoveCurrentPointerKeepsRoster(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	_, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{})
	require.NoError(t, err)
	require.NoError(t, a.RemoveCurrentPointer(ctx))

	cur, err := a.CurrentPointer(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	roster, err := a.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestLocal_CheckEmailAvailable(t *testing.T) {
	a, _ := newLocal(t)
	ctx := context.Background()

	ana, err := a.CreateProfile(ctx, cred("ana@example.com"), models.Seed{})
	require.NoError(t, err)
	bea, err := a.CreateProfile(ctx, cred("bea@example.com"), models.Seed{})
	require.NoError(t, err)

	assert.NoError(t, a.CheckEmailAvailable(ctx, "ana@example.com", ana.ID))
	assert.NoError(t, a.CheckEmailAvailable(ctx, "new@example.com", ana.ID))
	assert.ErrorIs(t, a.CheckEmailAvailable(ctx, "ana@example.com", bea.ID), common.ErrDuplicateIdentity)
}

func TestLocal_RejectsUnknownEnvelopeVersion(t *testing.T) {
	a, db := newLocal(t)
	ctx := context.Background()

	repo := metadata.NewSQLiteRepository(db)
	require.NoError(t, repo.Set(ctx, common.MetaRoster, []byte(`{"version":2,"users":[]}`)))
	require.NoError(t, repo.Set(ctx, common.MetaCurrent, []byte(`{"version":7,"user":null}`)))

	_, err := a.LoadRoster(ctx)
	assert.ErrorContains(t, err, "roster version 2")
	_, err = a.CurrentPointer(ctx)
	assert.ErrorContains(t, err, "current profile version 7")
}

func TestNextLocalID(t *testing.T) {
	users := []*models.Profile{{ID: "100"}, {ID: "not-a-number"}, {ID: "250"}}
	assert.Equal(t, int64(251), nextLocalID(users, time.UnixMilli(200)))
	assert.Equal(t, int64(900), nextLocalID(users, time.UnixMilli(900)))
}
