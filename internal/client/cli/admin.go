package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// Users lists every profile the backend knows about.
func (a *App) Users(ctx context.Context) error {
	users, err := a.admin.Roster(ctx)
	if err != nil {
		return a.fail(err)
	}
	for _, u := range users {
		a.printf("%-24s %-28s %-8s lvl %-3d %d appointments\n", u.Name, u.Email, u.Membership, u.Level, len(u.Appointments))
	}
	a.printf("%d users\n", len(users))
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.admin.Stats(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Users: %d (premium %d, %s%%)\n", st.TotalUsers, st.PremiumUsers, st.PremiumShare.StringFixed(2))
	a.printf("Appointments: %d\n", st.TotalAppointments)
	if st.PopularService != "" {
		a.printf("Most booked: %s (%d)\n", st.PopularService, st.PopularBookings)
	}
	a.printf("Booked value: %s €\n", st.BookedValue.StringFixed(2))
	return nil
}

// Notifications prints the live notifications with their ids.
func (a *App) Notifications(ctx context.Context) error {
	items := a.notices.List()
	if len(items) == 0 {
		a.println("No notifications.")
		return nil
	}
	for _, n := range items {
		a.printf("%d [%s] %s\n", n.ID, n.Kind, n.Message)
	}
	return nil
}

func (a *App) Dismiss(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: dismiss <id>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		a.println("Usage: dismiss <id>")
		return err
	}
	a.notices.Dismiss(id)
	return nil
}

// userMessage extends common.UserMessage with the texts of this client's
// own input errors.
func userMessage(err error) string {
	if errors.Is(err, services.ErrJournalIncomplete) {
		return services.MsgJournalIncomplete
	}
	return common.UserMessage(err)
}
