package services

import (
	"context"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/shopspring/decimal"
)

// FreeHistoryLimit is how many history items a free account sees.
const FreeHistoryLimit = 5

// VisibleHistory returns the history items p may see, newest first.
func VisibleHistory(p *models.Profile) []models.HistoryItem {
	if p == nil {
		return nil
	}
	if !p.IsPremium() && len(p.History) > FreeHistoryLimit {
		return p.History[:FreeHistoryLimit]
	}
	return p.History
}

type Stats struct {
	TotalUsers        int
	PremiumUsers      int
	PremiumShare      decimal.Decimal // percent, two decimals
	TotalAppointments int
	PopularService    string
	PopularBookings   int
	BookedValue       decimal.Decimal
}

// Admin exposes the roster views. Demo sessions see only the demo profile.
type Admin struct {
	adapter persistence.Adapter
	store   *profile.Store
	catalog *catalog.Catalog
}

func NewAdmin(adapter persistence.Adapter, store *profile.Store, cat *catalog.Catalog) *Admin {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Admin{adapter: adapter, store: store, catalog: cat}
}

func (a *Admin) Roster(ctx context.Context) ([]*models.Profile, error) {
	mode, cur := a.store.Snapshot()
	if mode == profile.Demo {
		return []*models.Profile{cur}, nil
	}
	list, err := a.adapter.LoadRoster(ctx)
	if err != nil {
		return nil, err
	}
	a.store.SetRoster(list)
	return a.store.Roster(), nil
}

func (a *Admin) Stats(ctx context.Context) (Stats, error) {
	list, err := a.Roster(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(list, a.catalog), nil
}

// ComputeStats summarizes users. Booked value sums catalog prices of every
// appointment; ties for the popular service go to the lower id.
func ComputeStats(users []*models.Profile, cat *catalog.Catalog) Stats {
	st := Stats{TotalUsers: len(users), PremiumShare: decimal.Zero, BookedValue: decimal.Zero}
	bookings := map[int]int{}

	for _, u := range users {
		if u.IsPremium() {
			st.PremiumUsers++
		}
		for _, ap := range u.Appointments {
			st.TotalAppointments++
			bookings[ap.ServiceID]++
			if svc, ok := cat.Service(ap.ServiceID); ok {
				st.BookedValue = st.BookedValue.Add(parsePrice(svc.Price))
			}
		}
	}

	if st.TotalUsers > 0 {
		st.PremiumShare = decimal.NewFromInt(int64(st.PremiumUsers)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(st.TotalUsers))).
			Round(2)
	}

	best := 0
	for id, n := range bookings {
		if n > st.PopularBookings || (n == st.PopularBookings && id < best) {
			best, st.PopularBookings = id, n
		}
	}
	if st.PopularBookings > 0 {
		if svc, ok := cat.Service(best); ok {
			st.PopularService = svc.Name
		}
	}
	return st
}

// parsePrice reads catalog prices such as "$85" or "$49.90".
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return decimal.Zero
	}
	return d
}
