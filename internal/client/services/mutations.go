package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Experience rewards.
const (
	FeedbackReward = 5
	HistoryReward  = 10
	JournalReward  = 15
)

// Booking window: seven days ahead, from 09:00 to 16:30 on the hour or
// half hour.
const (
	bookingLeadDays  = 7
	bookingFirstHour = 9
	bookingHours     = 8
)

const (
	msgProfileUpdated  = "Perfil actualizado correctamente"
	msgGoalUpdated     = "¡Tu meta principal ha sido actualizada!"
	msgFeedbackThanks  = "¡Gracias por tu retroalimentación!"
	msgJournalSaved    = "Tu momento se ha guardado en el diario."
	msgPremium         = "¡Felicidades! Has actualizado a Caliope Premium."
	msgPersistFailed   = "No se pudieron guardar los cambios."
	msgAppointmentFmt  = "Cita para \"%s\" reservada con éxito."
	msgExperienceAdded = "+%d EXP añadido."
)

// ProfileUpdate carries the fields to change; nil fields are kept.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	Preferences []string
	GoalID      *string
	Bio         *string
}

type JournalInput struct {
	ImageURL   string
	UserText   string
	AIAnalysis string
}

type MutationsConfig struct {
	Store    *profile.Store
	Adapter  persistence.Adapter
	Notifier gamification.Notifier
	Catalog  *catalog.Catalog
	Logger   logging.Logger
}

// Mutations is the only way to change the current profile. Each call
// validates, computes the next profile, installs it in the store, persists
// it unless the session is a demo, and notifies.
type Mutations struct {
	store     *profile.Store
	adapter   persistence.Adapter
	notifier  gamification.Notifier
	catalog   *catalog.Catalog
	logger    logging.Logger
	validate  *validator.Validate
	sanitizer *bluemonday.Policy

	now   func() time.Time
	intn  func(n int) int
	newID func() string
}

func NewMutations(cfg MutationsConfig) *Mutations {
	m := &Mutations{
		store:     cfg.Store,
		adapter:   cfg.Adapter,
		notifier:  cfg.Notifier,
		catalog:   cfg.Catalog,
		logger:    cfg.Logger.With("module", "mutations"),
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
		intn:      rand.IntN,
		newID:     uuid.NewString,
	}
	if m.catalog == nil {
		m.catalog = catalog.Default()
	}
	return m
}

// pending holds notifications raised while the store is locked.
type pending struct {
	msgs []note
}

type note struct {
	msg  string
	kind models.NotificationKind
}

func (p *pending) Notify(msg string, kind models.NotificationKind) int64 {
	p.msgs = append(p.msgs, note{msg, kind})
	return 0
}

func (p *pending) flush(n gamification.Notifier) {
	for _, m := range p.msgs {
		n.Notify(m.msg, m.kind)
	}
	p.msgs = nil
}

// persist writes p unless the session is a demo. Failures are logged and
// reported to the user, never returned.
func (m *Mutations) persist(ctx context.Context, mode profile.Mode, p *models.Profile, fields ...persistence.Field) {
	if mode == profile.Demo {
		return
	}
	if err := m.adapter.Persist(ctx, p, fields...); err != nil {
		m.logger.Error(ctx, "profile not persisted", "id", p.ID, "error", err)
		m.notifier.Notify(msgPersistFailed, models.KindError)
	}
}

// apply runs change and, when reward is positive, grants the experience in
// the same store update.
func (m *Mutations) apply(ctx context.Context, reward int, change func(p *models.Profile) error, fields ...persistence.Field) (*models.Profile, error) {
	var unlocks pending
	p, mode, err := m.store.Apply(func(p *models.Profile) (*models.Profile, error) {
		if change != nil {
			if err := change(p); err != nil {
				return nil, err
			}
		}
		if reward <= 0 {
			return p, nil
		}
		next, _, err := gamification.ApplyExperience(p, reward, &unlocks)
		return next, err
	})
	if err != nil {
		return nil, err
	}
	if reward > 0 {
		fields = append(fields, persistence.FieldGamification)
	}
	m.persist(ctx, mode, p, fields...)
	unlocks.flush(m.notifier)
	return p.Clone(), nil
}

func (m *Mutations) checkUpdate(ctx context.Context, cur *models.Profile, mode profile.Mode, upd *ProfileUpdate) error {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", common.ErrInvalidArgument)
		}
		upd.Name = &name
	}
	if upd.GoalID != nil && *upd.GoalID != "" {
		if _, ok := m.catalog.FocusArea(*upd.GoalID); !ok {
			return fmt.Errorf("%w: unknown goal %q", common.ErrInvalidArgument, *upd.GoalID)
		}
	}
	if upd.Bio != nil {
		bio := strings.TrimSpace(m.sanitizer.Sanitize(*upd.Bio))
		upd.Bio = &bio
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if err := m.validate.Var(email, "required,email"); err != nil {
			return fmt.Errorf("%w: malformed email", common.ErrInvalidArgument)
		}
		upd.Email = &email
		if mode != profile.Demo && !strings.EqualFold(email, cur.Email) {
			if err := m.adapter.CheckEmailAvailable(ctx, email, cur.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Mutations) update(ctx context.Context, upd ProfileUpdate) (*models.Profile, error) {
	mode, cur := m.store.Snapshot()
	if cur == nil {
		return nil, common.ErrNoActiveSession
	}
	if err := m.checkUpdate(ctx, cur, mode, &upd); err != nil {
		return nil, err
	}

	return m.apply(ctx, 0, func(p *models.Profile) error {
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Email != nil {
			p.Email = *upd.Email
		}
		if upd.Preferences != nil {
			p.Preferences = uniqueStrings(upd.Preferences)
		}
		if upd.GoalID != nil {
			p.GoalID = *upd.GoalID
		}
		if upd.Bio != nil {
			p.Bio = *upd.Bio
		}
		if !strings.HasPrefix(p.Avatar, "http") {
			p.Avatar = models.AvatarFor(p.Name)
		}
		return nil
	}, persistence.FieldIdentity, persistence.FieldPreferences)
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func (m *Mutations) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.Profile, error) {
	p, err := m.update(ctx, upd)
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(msgProfileUpdated, models.KindSuccess)
	return p, nil
}

func (m *Mutations) SetGoal(ctx context.Context, goalID string) (*models.Profile, error) {
	p, err := m.update(ctx, ProfileUpdate{GoalID: &goalID})
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(msgGoalUpdated, models.KindSuccess)
	return p, nil
}

// AddFeedback records the verdict for a service, replacing an earlier one.
// Without a session it does nothing.
func (m *Mutations) AddFeedback(ctx context.Context, serviceID int, verdict models.Verdict) error {
	if !verdict.Valid() {
		return fmt.Errorf("%w: verdict %q", common.ErrInvalidArgument, verdict)
	}
	if m.store.Current() == nil {
		return nil
	}
	_, err := m.apply(ctx, FeedbackReward, func(p *models.Profile) error {
		if p.Feedback == nil {
			p.Feedback = map[int]models.Verdict{}
		}
		p.Feedback[serviceID] = verdict
		return nil
	}, persistence.FieldFeedback)
	if err != nil {
		return err
	}
	m.notifier.Notify(msgFeedbackThanks, models.KindSuccess)
	return nil
}

func (m *Mutations) AddHistory(ctx context.Context, query string, recs []models.Recommendation) error {
	item := models.HistoryItem{
		Date:            m.now().UTC(),
		Query:           query,
		Recommendations: slices.Clone(recs),
	}
	_, err := m.apply(ctx, HistoryReward, func(p *models.Profile) error {
		p.History = slices.Insert(p.History, 0, item)
		return nil
	}, persistence.FieldHistory)
	return err
}

// bookingDate is seven days after now at a random slot of the booking
// window, in now's location.
func (m *Mutations) bookingDate() time.Time {
	now := m.now()
	day := now.AddDate(0, 0, bookingLeadDays)
	hour := bookingFirstHour + m.intn(bookingHours)
	minute := m.intn(2) * 30
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
}

// AddAppointment books a service. The service name is frozen at booking
// time; an empty name is taken from the catalog. Appointments stay in
// chronological order.
func (m *Mutations) AddAppointment(ctx context.Context, serviceID int, serviceName string) (models.Appointment, error) {
	if strings.TrimSpace(serviceName) == "" {
		svc, ok := m.catalog.Service(serviceID)
		if !ok {
			return models.Appointment{}, fmt.Errorf("%w: unknown service %d", common.ErrInvalidArgument, serviceID)
		}
		serviceName = svc.Name
	}
	appt := models.Appointment{ServiceID: serviceID, ServiceName: serviceName, Date: m.bookingDate()}

	_, err := m.apply(ctx, 0, func(p *models.Profile) error {
		p.Appointments = append(p.Appointments, appt)
		slices.SortStableFunc(p.Appointments, func(a, b models.Appointment) int {
			return a.Date.Compare(b.Date)
		})
		return nil
	}, persistence.FieldAppointments)
	if err != nil {
		return models.Appointment{}, err
	}
	m.notifier.Notify(fmt.Sprintf(msgAppointmentFmt, serviceName), models.KindSuccess)
	return appt, nil
}

func (m *Mutations) AddJournalEntry(ctx context.Context, in JournalInput) (models.JournalEntry, error) {
	entry := models.JournalEntry{
		ID:         m.newID(),
		Date:       m.now().UTC(),
		ImageURL:   in.ImageURL,
		UserText:   in.UserText,
		AIAnalysis: in.AIAnalysis,
	}
	_, err := m.apply(ctx, JournalReward, func(p *models.Profile) error {
		p.Journal = slices.Insert(p.Journal, 0, entry)
		return nil
	}, persistence.FieldJournal)
	if err != nil {
		return models.JournalEntry{}, err
	}
	m.notifier.Notify(msgJournalSaved, models.KindSuccess)
	return entry, nil
}

// UpgradeToPremium is idempotent; there is no payment step.
func (m *Mutations) UpgradeToPremium(ctx context.Context) (*models.Profile, error) {
	p, err := m.apply(ctx, 0, func(p *models.Profile) error {
		p.Membership = models.TierPremium
		return nil
	}, persistence.FieldMembership)
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(msgPremium, models.KindSuccess)
	return p, nil
}

func (m *Mutations) AddExperiencePoints(ctx context.Context, amount int) (*models.Profile, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("experience amount %d: %w", amount, common.ErrInvalidArgument)
	}
	p, err := m.apply(ctx, amount, nil)
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(fmt.Sprintf(msgExperienceAdded, amount), models.KindSuccess)
	return p, nil
}
