package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

const defaultExperienceGrant = 100

// Experience grants experience points to the signed-in profile: xp [n].
// The demo profile is left alone.
func (a *App) Experience(ctx context.Context, args []string) error {
	if a.session.Mode() == profile.Demo {
		a.println("Experience points cannot be added in demo mode.")
		return nil
	}

	amount := defaultExperienceGrant
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			a.println("Usage: xp [points]")
			return a.fail(fmt.Errorf("%w: points %q", common.ErrInvalidArgument, args[0]))
		}
		amount = n
	}

	p, err := a.mutations.AddExperiencePoints(ctx, amount)
	if err != nil {
		return a.fail(err)
	}
	a.printf("%d XP, level %d (%s)\n", p.Experience, p.Level, a.catalog.LevelName(p.Level))
	return nil
}

// Reset signs out and wipes the local database: the profile roster, the
// signed-in pointer, the remembered gateway session and cached tips.
func (a *App) Reset(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "This deletes every local profile and the saved session. Type 'yes' to continue", os.Stdout)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
		a.println("Reset cancelled.")
		return nil
	}

	if a.isLoggedIn() {
		if err := a.session.Logout(ctx); err != nil {
			a.logger.Warn(ctx, "logout before reset failed", "error", err)
		}
		if a.chat != nil {
			a.chat.Reset()
		}
	}

	if err := a.localData.DeletePrefix(ctx, ""); err != nil {
		a.logger.Error(ctx, "reset local data", "error", err)
		return a.fail(err)
	}
	a.println("All local data cleared.")
	return nil
}
