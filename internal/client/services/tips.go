package services

import (
	"context"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/tipcache"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"github.com/aquemenida/caliope-ai-studio/internal/timex"
)

const FallbackTip = "Recuerda mantenerte hidratado durante todo el día."

// Tips serves the daily tip, generated at most once per calendar day.
type Tips struct {
	ai     ai.Collaborator
	cache  tipcache.Cache
	logger logging.Logger
	now    func() time.Time
}

func NewTips(collab ai.Collaborator, cache tipcache.Cache, l logging.Logger) *Tips {
	return &Tips{ai: collab, cache: cache, logger: l.With("module", "tips"), now: time.Now}
}

// Today never fails: cache errors are logged and generation failures
// yield FallbackTip, which is not cached.
func (t *Tips) Today(ctx context.Context) string {
	now := t.now()
	day := timex.DayKey(now)

	tip, ok, err := t.cache.Get(ctx, day)
	if err != nil {
		t.logger.Warn(ctx, "tip cache read failed", "error", err)
	}
	if ok {
		return tip
	}

	tip, err = t.ai.DailyTip(ctx)
	if err != nil {
		t.logger.Warn(ctx, "daily tip not generated", "error", err)
		return FallbackTip
	}
	if err := t.cache.Set(ctx, day, tip, timex.UntilEndOfDay(now)); err != nil {
		t.logger.Warn(ctx, "tip cache write failed", "error", err)
	}
	return tip
}
