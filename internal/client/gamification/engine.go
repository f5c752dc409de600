// Package gamification derives experience, level and achievement state
// from a profile. It performs no I/O; unlock notifications go through the
// Notifier passed by the caller.
package gamification

import (
	"fmt"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

const (
	PointsPerLevel          = 100
	FeedbackMasterThreshold = 5

	AchievementLevel5         = "level-5"
	AchievementFeedbackMaster = "feedback-master"
	AchievementFirstUse       = "first-use"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Notify(msg string, kind models.NotificationKind) int64
}

type predicate struct {
	id string
	ok func(p *models.Profile) bool
}

var predicates = []predicate{
	{AchievementLevel5, func(p *models.Profile) bool { return p.Level >= 5 }},
	{AchievementFeedbackMaster, func(p *models.Profile) bool { return len(p.Feedback) >= FeedbackMasterThreshold }},
	{AchievementFirstUse, func(p *models.Profile) bool { return len(p.History) > 0 }},
}

// LevelFor returns the level reached with exp points.
func LevelFor(exp int) int {
	if exp < 0 {
		exp = 0
	}
	return exp/PointsPerLevel + 1
}

// LevelName returns the catalog title for level.
func LevelName(level int) string {
	return catalog.Default().LevelName(level)
}

// ApplyExperience returns a copy of p with amount experience added, the
// level recomputed and every newly satisfied achievement unlocked. p itself
// is not modified. n may be nil.
func ApplyExperience(p *models.Profile, amount int, n Notifier) (*models.Profile, []models.Achievement, error) {
	if amount <= 0 {
		return p, nil, fmt.Errorf("experience amount %d: %w", amount, common.ErrInvalidArgument)
	}

	next := p.Clone()
	next.Experience += amount
	next.Level = LevelFor(next.Experience)

	unlocked := Evaluate(next)
	for _, a := range unlocked {
		if n != nil {
			n.Notify(fmt.Sprintf("¡Nuevo Logro: %s!", a.Name), models.KindInfo)
		}
	}
	return next, unlocked, nil
}

// Evaluate unlocks, in place, every achievement whose predicate holds for p
// and which p does not already have. It returns the unlocked achievements in
// predicate order.
func Evaluate(p *models.Profile) []models.Achievement {
	cat := catalog.Default()
	var unlocked []models.Achievement
	for _, pr := range predicates {
		if p.HasAchievement(pr.id) || !pr.ok(p) {
			continue
		}
		p.Achievements = append(p.Achievements, pr.id)
		a, ok := cat.Achievement(pr.id)
		if !ok {
			a = models.Achievement{ID: pr.id, Name: pr.id}
		}
		unlocked = append(unlocked, a)
	}
	return unlocked
}
