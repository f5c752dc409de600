// Package persistence stores profiles for the two persistent session
// backends. The session layer depends only on Adapter; demo sessions never
// reach it.
package persistence

import (
	"context"
	"encoding/json"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
)

// Field names a group of profile fields that change together. Persist with
// no fields writes every group.
type Field int

const (
	FieldIdentity Field = iota
	FieldPreferences
	FieldMembership
	FieldGamification
	FieldHistory
	FieldFeedback
	FieldAppointments
	FieldJournal
)

var allFields = []Field{
	FieldIdentity,
	FieldPreferences,
	FieldMembership,
	FieldGamification,
	FieldHistory,
	FieldFeedback,
	FieldAppointments,
	FieldJournal,
}

// fieldKeys are the JSON keys of each group.
var fieldKeys = map[Field][]string{
	FieldIdentity:     {"name", "email", "avatar"},
	FieldPreferences:  {"preferences", "goalId", "bio"},
	FieldMembership:   {"membershipTier"},
	FieldGamification: {"experience", "level", "achievements"},
	FieldHistory:      {"history"},
	FieldFeedback:     {"feedback"},
	FieldAppointments: {"appointments"},
	FieldJournal:      {"journal"},
}

type Adapter interface {
	LoadRoster(ctx context.Context) ([]*models.Profile, error)
	// LoadCurrent returns common.ErrNotFound when the identity has no profile.
	LoadCurrent(ctx context.Context, id models.Identity) (*models.Profile, error)
	CreateProfile(ctx context.Context, id models.Identity, seed models.Seed) (*models.Profile, error)
	Persist(ctx context.Context, p *models.Profile, fields ...Field) error
	RemoveCurrentPointer(ctx context.Context) error
	// CheckEmailAvailable returns common.ErrDuplicateIdentity when email
	// belongs to a profile other than owner.
	CheckEmailAvailable(ctx context.Context, email string, owner models.ProfileID) error
}

// normalizeProfile fills nil collections and the derived level after a
// decode, so that stored and fresh profiles look the same.
func normalizeProfile(p *models.Profile) *models.Profile {
	if p.Preferences == nil {
		p.Preferences = []string{}
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	if p.History == nil {
		p.History = []models.HistoryItem{}
	}
	if p.Feedback == nil {
		p.Feedback = map[int]models.Verdict{}
	}
	if p.Appointments == nil {
		p.Appointments = []models.Appointment{}
	}
	if p.Journal == nil {
		p.Journal = []models.JournalEntry{}
	}
	if p.Membership == "" {
		p.Membership = models.TierFree
	}
	if p.Level < 1 {
		p.Level = p.Experience/100 + 1
	}
	return p
}

func decodeProfile(raw []byte) (*models.Profile, error) {
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return normalizeProfile(&p), nil
}
