package services

import (
	"context"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"golang.org/x/sync/errgroup"
)

type Dashboard struct {
	Name         string
	Level        int
	LevelName    string
	Experience   int
	LevelPercent int
	Achievements int
	Premium      bool
	Goal         string
	Tip          string
	Suggestion   string
}

// Insights assembles the dashboard summary.
type Insights struct {
	ai      ai.Collaborator
	tips    *Tips
	store   *profile.Store
	catalog *catalog.Catalog
}

func NewInsights(collab ai.Collaborator, tips *Tips, store *profile.Store, cat *catalog.Catalog) *Insights {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Insights{ai: collab, tips: tips, store: store, catalog: cat}
}

// Dashboard fetches the daily tip and the proactive suggestion
// concurrently.
func (in *Insights) Dashboard(ctx context.Context) (Dashboard, error) {
	p := in.store.Current()
	if p == nil {
		return Dashboard{}, common.ErrNoActiveSession
	}

	d := Dashboard{
		Name:         p.Name,
		Level:        p.Level,
		LevelName:    in.catalog.LevelName(p.Level),
		Experience:   p.Experience,
		LevelPercent: p.Experience % gamification.PointsPerLevel,
		Achievements: len(p.Achievements),
		Premium:      p.IsPremium(),
	}
	if fa, ok := in.catalog.FocusArea(p.GoalID); ok {
		d.Goal = fa.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Tip = in.tips.Today(gctx)
		return nil
	})
	g.Go(func() error {
		d.Suggestion = in.ai.ProactiveSuggestion(gctx, p)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
