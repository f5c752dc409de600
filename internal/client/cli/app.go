package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/config"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/notify"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

// Mode is the connectivity state shown in the prompt.
type Mode string

const (
	ModeLocal   Mode = "local"
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type sessionService interface {
	Mode() profile.Mode
	Current() *models.Profile
	Login(ctx context.Context, email, password string) (*models.Profile, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.Profile, error)
	FederatedLoginURL(state string) (string, error)
	LoginWithFederated(ctx context.Context, callback string) (*models.Profile, error)
	Restore(ctx context.Context) (*models.Profile, error)
	StartDemoMode(ctx context.Context) *models.Profile
	Logout(ctx context.Context) error
}

type mutationService interface {
	UpdateProfile(ctx context.Context, upd services.ProfileUpdate) (*models.Profile, error)
	SetGoal(ctx context.Context, goalID string) (*models.Profile, error)
	AddFeedback(ctx context.Context, serviceID int, verdict models.Verdict) error
	AddAppointment(ctx context.Context, serviceID int, serviceName string) (models.Appointment, error)
	UpgradeToPremium(ctx context.Context) (*models.Profile, error)
	AddExperiencePoints(ctx context.Context, amount int) (*models.Profile, error)
}

// localDataStore is the client's key/value table.
type localDataStore interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

type chatService interface {
	Send(ctx context.Context, message string) (ai.Reply, error)
	Reset()
}

type journalService interface {
	Save(ctx context.Context, in services.JournalSubmission) (models.JournalEntry, error)
}

type insightsService interface {
	Dashboard(ctx context.Context) (services.Dashboard, error)
}

type adminService interface {
	Roster(ctx context.Context) ([]*models.Profile, error)
	Stats(ctx context.Context) (services.Stats, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config    *config.Config
	catalog   *catalog.Catalog
	session   sessionService
	mutations mutationService
	chat      chatService
	journal   journalService
	insights  insightsService
	admin     adminService
	localData localDataStore
	notices   *notify.Queue
	gateway   pinger
	logger    logging.Logger
	closers   []func() error
	reader    *bufio.Reader
	out       io.Writer

	mu   sync.Mutex
	mode Mode
}

// Close releases everything NewApp opened, last opened first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.output(), format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.output(), args...)
}

func (a *App) output() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

// fail prints the user-facing text for err and returns err unchanged.
func (a *App) fail(err error) error {
	if msg := userMessage(err); msg != "" {
		a.println(msg)
	}
	return err
}

// StartOnlineStatusWatcher pings the gateway every interval and keeps the
// connectivity mode current. It returns when ctx is done. Without a gateway
// the mode stays local.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if a.gateway == nil {
		a.setMode(ModeLocal)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.gateway.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
