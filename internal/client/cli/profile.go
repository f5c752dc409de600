package cli

import (
	"context"
	"os"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// Profile prints the current profile.
func (a *App) Profile(ctx context.Context) error {
	p := a.session.Current()
	if p == nil {
		return a.fail(common.ErrNoActiveSession)
	}

	a.printf("%s  %s <%s>\n", p.Avatar, p.Name, p.Email)
	a.printf("Level %d (%s), %d XP, %d%% to next level\n",
		p.Level, a.catalog.LevelName(p.Level), p.Experience, p.Experience%gamification.PointsPerLevel)
	a.printf("Membership: %s\n", p.Membership)
	if fa, ok := a.catalog.FocusArea(p.GoalID); ok {
		a.printf("Goal: %s\n", fa.Name)
	}
	if len(p.Preferences) > 0 {
		a.printf("Preferences: %s\n", strings.Join(p.Preferences, ", "))
	}
	if p.Bio != "" {
		a.printf("Bio: %s\n", p.Bio)
	}
	return nil
}

// EditProfile prompts for each editable field. An empty answer keeps the
// current value.
func (a *App) EditProfile(ctx context.Context) error {
	cur := a.session.Current()
	if cur == nil {
		return a.fail(common.ErrNoActiveSession)
	}

	var upd services.ProfileUpdate
	changed := false

	ask := func(prompt string) (string, error) {
		return getSimpleText(a.reader, prompt, os.Stdout)
	}

	name, err := ask("Name [" + cur.Name + "]")
	if err != nil {
		return err
	}
	if name != "" {
		upd.Name, changed = &name, true
	}

	email, err := ask("Email [" + cur.Email + "]")
	if err != nil {
		return err
	}
	if email != "" {
		upd.Email, changed = &email, true
	}

	bio, err := GetMultiline(a.reader, "Bio", os.Stdout)
	if err != nil {
		return err
	}
	if bio != "" {
		upd.Bio, changed = &bio, true
	}

	prefs, err := ask("Preferences, comma separated [" + strings.Join(cur.Preferences, ", ") + "]")
	if err != nil {
		return err
	}
	if prefs != "" {
		upd.Preferences, changed = splitList(prefs), true
	}

	if !changed {
		a.println("Nothing to change.")
		return nil
	}
	if _, err := a.mutations.UpdateProfile(ctx, upd); err != nil {
		return a.fail(err)
	}
	return nil
}

// SetGoal selects a focus area. Without arguments it lists them.
func (a *App) SetGoal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, fa := range a.catalog.FocusAreas {
			a.printf("  %-20s %s\n", fa.ID, fa.Name)
		}
		a.println("Usage: goal <id>")
		return nil
	}
	if _, err := a.mutations.SetGoal(ctx, args[0]); err != nil {
		return a.fail(err)
	}
	return nil
}

func (a *App) Upgrade(ctx context.Context) error {
	if _, err := a.mutations.UpgradeToPremium(ctx); err != nil {
		return a.fail(err)
	}
	for _, f := range a.catalog.MembershipFeatures[models.TierPremium] {
		a.printf("  + %s\n", f)
	}
	return nil
}

// Achievements lists the catalog achievements, marking the unlocked ones.
func (a *App) Achievements(ctx context.Context) error {
	p := a.session.Current()
	if p == nil {
		return a.fail(common.ErrNoActiveSession)
	}
	for _, ach := range a.catalog.Achievements {
		mark := " "
		if p.HasAchievement(ach.ID) {
			mark = "x"
		}
		a.printf("[%s] %s %s: %s\n", mark, ach.Icon, ach.Name, ach.Description)
	}
	return nil
}

// History prints past recommendations. Free members see the latest
// services.FreeHistoryLimit entries only.
func (a *App) History(ctx context.Context) error {
	p := a.session.Current()
	if p == nil {
		return a.fail(common.ErrNoActiveSession)
	}
	items := services.VisibleHistory(p)
	if len(items) == 0 {
		a.println("No recommendations yet.")
		return nil
	}
	for _, h := range items {
		a.printf("%s  %q\n", h.Date.Local().Format("2006-01-02 15:04"), h.Query)
		for _, r := range h.Recommendations {
			a.printf("    #%d %s: %s\n", r.ID, r.Name, r.Reason)
		}
	}
	if len(items) < len(p.History) {
		a.printf("(%d older entries are available with premium)\n", len(p.History)-len(items))
	}
	return nil
}

func (a *App) Appointments(ctx context.Context) error {
	p := a.session.Current()
	if p == nil {
		return a.fail(common.ErrNoActiveSession)
	}
	if len(p.Appointments) == 0 {
		a.println("No appointments booked.")
		return nil
	}
	for _, ap := range p.Appointments {
		a.printf("%s  %s\n", ap.Date.Local().Format("Mon 2006-01-02 15:04"), ap.ServiceName)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
