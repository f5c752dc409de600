package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// Services lists the wellness catalog.
func (a *App) Services(ctx context.Context) error {
	for _, s := range a.catalog.Services {
		a.printf("#%-2d %-28s %-12s %s\n", s.ID, s.Name, s.Category, s.Price)
	}
	return nil
}

// Chat sends args as one message to the assistant. Without arguments the
// message is read from the prompt.
func (a *App) Chat(ctx context.Context, args []string) error {
	msg := strings.TrimSpace(strings.Join(args, " "))
	if msg == "" {
		if len(a.catalog.QuickReplies) > 0 {
			a.printf("Try: %s\n", strings.Join(a.catalog.QuickReplies, " | "))
		}
		var err error
		if msg, err = getSimpleText(a.reader, "What are you looking for today?", os.Stdout); err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
	}

	reply, err := a.chat.Send(ctx, msg)
	if err != nil {
		// Failures after the session check are already in the notification queue.
		if errors.Is(err, common.ErrNoActiveSession) {
			return a.fail(err)
		}
		return err
	}

	a.println(reply.Text)
	for _, r := range reply.Recommendations {
		a.printf("  #%d %s (%s, %s)\n      %s\n", r.ID, r.Name, r.Category, r.Price, r.Reason)
	}
	return nil
}

func parseServiceID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: service id is required", common.ErrInvalidArgument)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil {
		return 0, fmt.Errorf("%w: service id %q", common.ErrInvalidArgument, args[0])
	}
	return id, nil
}

// Book schedules the catalog service args[0].
func (a *App) Book(ctx context.Context, args []string) error {
	id, err := parseServiceID(args)
	if err != nil {
		a.println("Usage: book <service id>")
		return err
	}
	svc, ok := a.catalog.Service(id)
	if !ok {
		return a.fail(fmt.Errorf("service %d: %w", id, common.ErrNotFound))
	}

	ap, err := a.mutations.AddAppointment(ctx, svc.ID, svc.Name)
	if err != nil {
		return a.fail(err)
	}
	a.printf("%s on %s\n", ap.ServiceName, ap.Date.Local().Format("Mon 2006-01-02 15:04"))
	return nil
}

// Rate records like/dislike feedback: rate <service id> like|dislike.
func (a *App) Rate(ctx context.Context, args []string) error {
	id, err := parseServiceID(args)
	if err != nil || len(args) < 2 {
		a.println("Usage: rate <service id> like|dislike")
		return err
	}

	var verdict models.Verdict
	switch strings.ToLower(args[1]) {
	case "like", "+", "positive":
		verdict = models.VerdictPositive
	case "dislike", "-", "negative":
		verdict = models.VerdictNegative
	default:
		a.println("Usage: rate <service id> like|dislike")
		return fmt.Errorf("%w: verdict %q", common.ErrInvalidArgument, args[1])
	}

	if err := a.mutations.AddFeedback(ctx, id, verdict); err != nil {
		return a.fail(err)
	}
	return nil
}

// Journal reads an image file and a description, asks the assistant for a
// reflection and stores the entry.
func (a *App) Journal(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Path to an image of your moment", os.Stdout)
	if err != nil {
		return err
	}
	var image []byte
	if path != "" {
		if image, err = os.ReadFile(path); err != nil {
			a.printf("Cannot read %s: %v\n", path, err)
			return err
		}
	}

	text, err := GetMultiline(a.reader, "Describe your moment", os.Stdout)
	if err != nil {
		return err
	}

	entry, err := a.journal.Save(ctx, services.JournalSubmission{
		Image:    image,
		MimeType: http.DetectContentType(image),
		Text:     text,
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidArgument) || errors.Is(err, common.ErrNoActiveSession) {
			return a.fail(err)
		}
		return err
	}
	a.println(entry.AIAnalysis)
	return nil
}

// Dashboard prints the progress summary with today's tip and suggestion.
func (a *App) Dashboard(ctx context.Context) error {
	d, err := a.insights.Dashboard(ctx)
	if err != nil {
		return a.fail(err)
	}

	member := "free"
	if d.Premium {
		member = "premium"
	}
	a.printf("%s, level %d (%s), %d XP [%s]\n", d.Name, d.Level, d.LevelName, d.Experience, progressBar(d.LevelPercent))
	a.printf("Achievements: %d  Membership: %s\n", d.Achievements, member)
	if d.Goal != "" {
		a.printf("Goal: %s\n", d.Goal)
	}
	a.printf("Tip of the day: %s\n", d.Tip)
	a.println(d.Suggestion)
	return nil
}

func progressBar(percent int) string {
	const width = 20
	filled := percent * width / 100
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
