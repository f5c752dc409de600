package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
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

type fakeSession struct {
	current *models.Profile
	mode    profile.Mode

	Err error

	LastEmail    string
	LastPassword string
	LastRegister services.RegisterInput
	LastCallback string
	LastState    string
	LogoutCalled bool
	DemoCalled   bool
	RestoreResp  *models.Profile
}

func (f *fakeSession) Mode() profile.Mode       { return f.mode }
func (f *fakeSession) Current() *models.Profile { return f.current }

func (f *fakeSession) signIn(p *models.Profile, err error) (*models.Profile, error) {
	if err != nil {
		return nil, err
	}
	f.current, f.mode = p, profile.Authenticated
	return p, nil
}

func (f *fakeSession) Login(_ context.Context, email, password string) (*models.Profile, error) {
	f.LastEmail, f.LastPassword = email, password
	return f.signIn(&models.Profile{Name: "Ana", Email: email}, f.Err)
}

func (f *fakeSession) Register(_ context.Context, in services.RegisterInput) (*models.Profile, error) {
	f.LastRegister = in
	return f.signIn(&models.Profile{Name: in.Name, Email: in.Email}, f.Err)
}

func (f *fakeSession) FederatedLoginURL(state string) (string, error) {
	f.LastState = state
	return "https://accounts.example/auth?state=" + state, f.Err
}

func (f *fakeSession) LoginWithFederated(_ context.Context, callback string) (*models.Profile, error) {
	f.LastCallback = callback
	if callback == "" {
		return nil, nil
	}
	return f.signIn(&models.Profile{Name: "Google User"}, f.Err)
}

func (f *fakeSession) Restore(context.Context) (*models.Profile, error) {
	if f.RestoreResp != nil {
		return f.signIn(f.RestoreResp, nil)
	}
	return nil, f.Err
}

func (f *fakeSession) StartDemoMode(context.Context) *models.Profile {
	f.DemoCalled = true
	f.current = catalog.Default().DemoProfile(time.Now())
	f.mode = profile.Demo
	return f.current
}

func (f *fakeSession) Logout(context.Context) error {
	f.LogoutCalled = true
	f.current, f.mode = nil, profile.Unauthenticated
	return f.Err
}

type fakeMutations struct {
	Err error

	LastUpdate      services.ProfileUpdate
	LastGoal        string
	LastServiceID   int
	LastServiceName string
	LastVerdict     models.Verdict
	LastExperience  int
	Upgraded        bool
}

func (f *fakeMutations) UpdateProfile(_ context.Context, upd services.ProfileUpdate) (*models.Profile, error) {
	f.LastUpdate = upd
	return &models.Profile{}, f.Err
}

func (f *fakeMutations) SetGoal(_ context.Context, goalID string) (*models.Profile, error) {
	f.LastGoal = goalID
	return &models.Profile{GoalID: goalID}, f.Err
}

func (f *fakeMutations) AddFeedback(_ context.Context, serviceID int, verdict models.Verdict) error {
	f.LastServiceID, f.LastVerdict = serviceID, verdict
	return f.Err
}

func (f *fakeMutations) AddAppointment(_ context.Context, serviceID int, serviceName string) (models.Appointment, error) {
	f.LastServiceID, f.LastServiceName = serviceID, serviceName
	if f.Err != nil {
		return models.Appointment{}, f.Err
	}
	return models.Appointment{ServiceID: serviceID, ServiceName: serviceName, Date: time.Now().AddDate(0, 0, 7)}, nil
}

func (f *fakeMutations) UpgradeToPremium(context.Context) (*models.Profile, error) {
	f.Upgraded = true
	return &models.Profile{Membership: models.TierPremium}, f.Err
}

func (f *fakeMutations) AddExperiencePoints(_ context.Context, amount int) (*models.Profile, error) {
	f.LastExperience = amount
	if f.Err != nil {
		return nil, f.Err
	}
	return &models.Profile{Experience: 30 + amount, Level: (30+amount)/100 + 1}, nil
}

type fakeLocalData struct {
	Err        error
	LastPrefix *string
}

func (f *fakeLocalData) DeletePrefix(_ context.Context, prefix string) error {
	f.LastPrefix = &prefix
	return f.Err
}

type fakeChat struct {
	Reply       ai.Reply
	Err         error
	LastMessage string
	ResetCalled bool
}

func (f *fakeChat) Send(_ context.Context, message string) (ai.Reply, error) {
	f.LastMessage = message
	return f.Reply, f.Err
}

func (f *fakeChat) Reset() { f.ResetCalled = true }

type fakeJournal struct {
	Err        error
	LastSubmit services.JournalSubmission
}

func (f *fakeJournal) Save(_ context.Context, in services.JournalSubmission) (models.JournalEntry, error) {
	f.LastSubmit = in
	if f.Err != nil {
		return models.JournalEntry{}, f.Err
	}
	return models.JournalEntry{ID: "j1", UserText: in.Text, AIAnalysis: "Un momento de calma."}, nil
}

type fakeInsights struct {
	Resp services.Dashboard
	Err  error
}

func (f *fakeInsights) Dashboard(context.Context) (services.Dashboard, error) { return f.Resp, f.Err }

type fakeAdmin struct {
	Users []*models.Profile
	St    services.Stats
	Err   error
}

func (f *fakeAdmin) Roster(context.Context) ([]*models.Profile, error) { return f.Users, f.Err }
func (f *fakeAdmin) Stats(context.Context) (services.Stats, error)     { return f.St, f.Err }

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type testApp struct {
	*App
	session   *fakeSession
	mutations *fakeMutations
	chat      *fakeChat
	journal   *fakeJournal
	insights  *fakeInsights
	admin     *fakeAdmin
	localData *fakeLocalData
	out       *bytes.Buffer
}

// newTestApp builds an App over fakes. input feeds the interactive prompts.
func newTestApp(t *testing.T, input ...string) *testApp {
	t.Helper()
	notices := notify.NewQueue(time.Minute)
	t.Cleanup(notices.Close)

	ta := &testApp{
		session:   &fakeSession{},
		mutations: &fakeMutations{},
		chat:      &fakeChat{},
		journal:   &fakeJournal{},
		insights:  &fakeInsights{},
		admin:     &fakeAdmin{},
		localData: &fakeLocalData{},
		out:       &bytes.Buffer{},
	}
	ta.App = &App{
		config:    &config.Config{OnlineCheckInterval: time.Second},
		catalog:   catalog.Default(),
		session:   ta.session,
		mutations: ta.mutations,
		chat:      ta.chat,
		journal:   ta.journal,
		insights:  ta.insights,
		admin:     ta.admin,
		localData: ta.localData,
		notices:   notices,
		logger:    logging.Nop{},
		reader:    bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n")),
		out:       ta.out,
	}
	return ta
}

func (ta *testApp) loggedIn() *testApp {
	ta.session.current = &models.Profile{Name: "Ana", Email: "ana@example.com", Level: 1}
	ta.session.mode = profile.Authenticated
	return ta
}

// stubInputs routes getSimpleText to the app reader without prompts and
// makes getPassword return password.
func stubInputs(t *testing.T, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(r *bufio.Reader, _ string, _ io.Writer) (string, error) {
		return GetSimpleText(r, "", io.Discard)
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}
