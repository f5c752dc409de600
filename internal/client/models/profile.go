// Package models holds the client-side domain types: the user profile with
// its collections, the identity variants produced by auth providers and the
// catalog entities the profile references.
package models

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ProfileID is opaque. Local profiles use the decimal form of an int64,
// remote profiles the gateway UID; callers must not assume either.
type ProfileID string

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type Verdict string

const (
	VerdictPositive Verdict = "positive"
	VerdictNegative Verdict = "negative"
)

func (v Verdict) Valid() bool {
	return v == VerdictPositive || v == VerdictNegative
}

type Profile struct {
	ID           ProfileID       `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Avatar       string          `json:"avatar"`
	Preferences  []string        `json:"preferences"`
	GoalID       string          `json:"goalId,omitempty"`
	Bio          string          `json:"bio"`
	Membership   Tier            `json:"membershipTier"`
	Experience   int             `json:"experience"`
	Level        int             `json:"level"`
	Achievements []string        `json:"achievements"`
	History      []HistoryItem   `json:"history"`
	Feedback     map[int]Verdict `json:"feedback"`
	Appointments []Appointment   `json:"appointments"`
	Journal      []JournalEntry  `json:"journal"`
	CreatedAt    time.Time       `json:"createdAt"`
	PasswordHash string          `json:"passwordHash,omitempty"`
}

type HistoryItem struct {
	Date            time.Time        `json:"date"`
	Query           string           `json:"preferences"`
	Recommendations []Recommendation `json:"recommendations"`
}

type Appointment struct {
	ServiceID   int       `json:"serviceId"`
	ServiceName string    `json:"serviceName"`
	Date        time.Time `json:"date"`
}

type JournalEntry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	ImageURL   string    `json:"imageUrl"`
	UserText   string    `json:"userText"`
	AIAnalysis string    `json:"aiAnalysis"`
}

// Seed carries what a provider knows about a new account.
type Seed struct {
	Name     string
	PhotoURL string
}

// NewProfile builds a fresh free-tier profile at level 1.
func NewProfile(id ProfileID, email string, seed Seed, now time.Time) *Profile {
	name := seed.Name
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	avatar := seed.PhotoURL
	if avatar == "" {
		avatar = AvatarFor(name)
	}
	return &Profile{
		ID:           id,
		Email:        email,
		Name:         name,
		Avatar:       avatar,
		Preferences:  []string{},
		Membership:   TierFree,
		Level:        1,
		Achievements: []string{},
		History:      []HistoryItem{},
		Feedback:     map[int]Verdict{},
		Appointments: []Appointment{},
		Journal:      []JournalEntry{},
		CreatedAt:    now.UTC(),
	}
}

// AvatarFor is the upper-cased first letter of name, or "?" for an empty name.
func AvatarFor(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// HasAchievement reports whether id has been unlocked.
func (p *Profile) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

// IsPremium reports the membership tier.
func (p *Profile) IsPremium() bool {
	return p.Membership == TierPremium
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Preferences = slices.Clone(p.Preferences)
	c.Achievements = slices.Clone(p.Achievements)
	c.Appointments = slices.Clone(p.Appointments)
	c.Journal = slices.Clone(p.Journal)

	if p.History != nil {
		c.History = make([]HistoryItem, len(p.History))
		for i, h := range p.History {
			c.History[i] = h.clone()
		}
	}
	if p.Feedback != nil {
		c.Feedback = make(map[int]Verdict, len(p.Feedback))
		for k, v := range p.Feedback {
			c.Feedback[k] = v
		}
	}
	return &c
}

func (h HistoryItem) clone() HistoryItem {
	if h.Recommendations == nil {
		return h
	}
	recs := make([]Recommendation, len(h.Recommendations))
	for i, r := range h.Recommendations {
		r.Keywords = slices.Clone(r.Keywords)
		recs[i] = r
	}
	h.Recommendations = recs
	return h
}
