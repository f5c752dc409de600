package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/client/notify"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
)

// getStatus renders "(name mode)" for the prompt: the profile name, "demo"
// when exploring the demo profile, and the connectivity mode.
func (a *App) getStatus() string {
	var parts []string
	if a.session != nil {
		if p := a.session.Current(); p != nil {
			parts = append(parts, p.Name)
		}
		if m := a.session.Mode(); m == profile.Demo || m == profile.Authenticating {
			parts = append(parts, m.String())
		}
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// showNotifications prints every notification it has not printed before.
func (a *App) showNotifications() func([]notify.Notification) {
	var (
		mu   sync.Mutex
		last int64
	)
	return func(items []notify.Notification) {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range items {
			if n.ID <= last {
				continue
			}
			last = n.ID
			a.printf("* %s\n", n.Message)
		}
	}
}

// Root runs the interactive session: it resumes a remembered login,
// starts the connectivity watcher and blocks in the REPL until the user
// exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.println("Welcome to Caliope (type 'help' for commands)")

	unsubscribe := a.notices.Subscribe(a.showNotifications())
	defer unsubscribe()

	if !a.restore(ctx) {
		a.println("Type 'login', 'register', 'google' or 'demo' to start.")
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
