package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/auth"
	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

var fixedNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// ---- notifier ----

type recordingNotifier struct {
	mu    sync.Mutex
	msgs  []string
	kinds []models.NotificationKind
}

func (n *recordingNotifier) Notify(msg string, kind models.NotificationKind) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	n.kinds = append(n.kinds, kind)
	return int64(len(n.msgs))
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func (n *recordingNotifier) KindOf(msg string) models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, m := range n.msgs {
		if m == msg {
			return n.kinds[i]
		}
	}
	return ""
}

// ---- adapter ----

type fakeAdapter struct {
	mu       sync.Mutex
	profiles map[models.ProfileID]*models.Profile

	PersistErr error
	LoadErr    error

	Writes         int
	PointerRemoved int
	LastFields     []persistence.Field
	LastCheckEmail string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{profiles: map[models.ProfileID]*models.Profile{}}
}

func (f *fakeAdapter) LoadRoster(context.Context) ([]*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (f *fakeAdapter) LoadCurrent(_ context.Context, id models.Identity) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	p, ok := f.profiles[id.ProfileID()]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p.Clone(), nil
}

func (f *fakeAdapter) CreateProfile(_ context.Context, id models.Identity, seed models.Seed) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	p := models.NewProfile(id.ProfileID(), id.EmailAddress(), seed, fixedNow)
	f.profiles[p.ID] = p.Clone()
	return p, nil
}

func (f *fakeAdapter) Persist(_ context.Context, p *models.Profile, fields ...persistence.Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastFields = fields
	if f.PersistErr != nil {
		return f.PersistErr
	}
	f.Writes++
	f.profiles[p.ID] = p.Clone()
	return nil
}

func (f *fakeAdapter) RemoveCurrentPointer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PointerRemoved++
	return nil
}

func (f *fakeAdapter) CheckEmailAvailable(_ context.Context, email string, owner models.ProfileID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCheckEmail = email
	for _, p := range f.profiles {
		if strings.EqualFold(p.Email, email) && p.ID != owner {
			return common.ErrDuplicateIdentity
		}
	}
	return nil
}

func (f *fakeAdapter) stored(id models.ProfileID) *models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id].Clone()
}

func (f *fakeAdapter) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writes
}

// ---- provider ----

type fakeProvider struct {
	events *auth.Broadcaster

	SignInID   models.Identity
	SignInErr  error
	SignUpErr  error
	FedErr     error
	RestoreID  models.Identity
	SilentExit bool // SignOut publishes nothing
	// SignOutGate, when set, holds SignOut until it is closed.
	SignOutGate chan struct{}

	mu           sync.Mutex
	SignUpCalls  int
	SignOutCalls int
	LastName     string
	Calls        []string
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *fakeProvider) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: auth.NewBroadcaster()}
}

func (f *fakeProvider) SignIn(context.Context, string, string) (models.Identity, error) {
	f.record("sign-in")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.events.Publish(f.SignInID)
	return f.SignInID, nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, _, name string) (models.Identity, error) {
	f.mu.Lock()
	f.SignUpCalls++
	f.LastName = name
	f.mu.Unlock()
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	id := models.RemoteIdentity{UID: "uid-" + email, Email: email, DisplayName: name}
	f.events.Publish(id)
	return id, nil
}

func (f *fakeProvider) FederatedLoginURL(string) (string, error) {
	return "https://accounts.example/auth", nil
}

func (f *fakeProvider) SignInWithFederated(context.Context, string) (models.Identity, error) {
	if f.FedErr != nil {
		return nil, f.FedErr
	}
	f.events.Publish(f.SignInID)
	return f.SignInID, nil
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	gate := f.SignOutGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.record("sign-out")
	if !f.SilentExit {
		f.events.Publish(nil)
	}
	return nil
}

func (f *fakeProvider) signOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SignOutCalls
}

func (f *fakeProvider) Restore(context.Context) (models.Identity, error) {
	if f.RestoreID != nil {
		f.events.Publish(f.RestoreID)
	}
	return f.RestoreID, nil
}

const barrierUID = "__barrier__"

func isBarrier(id models.Identity) bool {
	return id != nil && id.ProfileID() == barrierUID
}

// OnSessionChange hides barrier events from the session.
func (f *fakeProvider) OnSessionChange(h auth.Handler) func() {
	return f.events.Subscribe(func(id models.Identity) {
		if !isBarrier(id) {
			h(id)
		}
	})
}

func (f *fakeProvider) Close() error { f.events.Close(); return nil }

// barrier returns once every event published so far has been handled.
func (f *fakeProvider) barrier(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	var once sync.Once
	unsub := f.events.Subscribe(func(id models.Identity) {
		if isBarrier(id) {
			once.Do(func() { close(done) })
		}
	})
	defer unsub()
	f.events.Publish(models.RemoteIdentity{UID: barrierUID})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session events not delivered")
	}
}

// ---- ai ----

type fakeConversation struct {
	collab *fakeAI
}

func (c *fakeConversation) SendMessage(_ context.Context, msg string) (ai.Reply, error) {
	c.collab.mu.Lock()
	defer c.collab.mu.Unlock()
	c.collab.LastMessage = msg
	if c.collab.ChatErr != nil {
		return ai.Reply{}, c.collab.ChatErr
	}
	return c.collab.Reply, nil
}

type fakeAI struct {
	mu sync.Mutex

	Reply      ai.Reply
	ChatErr    error
	Tip        string
	TipErr     error
	Suggestion string
	Analysis   string
	AnalyzeErr error

	Conversations int
	TipCalls      int
	LastMessage   string
	LastMime      string
}

func (f *fakeAI) NewConversation(*models.Profile) ai.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Conversations++
	return &fakeConversation{collab: f}
}

func (f *fakeAI) DailyTip(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TipCalls++
	return f.Tip, f.TipErr
}

func (f *fakeAI) ProactiveSuggestion(_ context.Context, p *models.Profile) string {
	if f.Suggestion == "" {
		return ai.FallbackSuggestion(p.Name)
	}
	return f.Suggestion
}

func (f *fakeAI) AnalyzeJournalEntry(_ context.Context, _ []byte, mime, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastMime = mime
	return f.Analysis, f.AnalyzeErr
}

// ---- wiring ----

type harness struct {
	store     *profile.Store
	adapter   *fakeAdapter
	provider  *fakeProvider
	notifier  *recordingNotifier
	session   *Session
	mutations *Mutations
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    profile.NewStore(),
		adapter:  newFakeAdapter(),
		provider: newFakeProvider(),
		notifier: &recordingNotifier{},
	}
	h.session = NewSession(SessionConfig{
		Provider:      h.provider,
		Adapter:       h.adapter,
		Store:         h.store,
		Notifier:      h.notifier,
		Catalog:       catalog.Default(),
		Logger:        logging.Nop{},
		LogoutTimeout: time.Second,
	})
	h.session.now = func() time.Time { return fixedNow }
	h.mutations = NewMutations(MutationsConfig{
		Store:    h.store,
		Adapter:  h.adapter,
		Notifier: h.notifier,
		Catalog:  catalog.Default(),
		Logger:   logging.Nop{},
	})
	h.mutations.now = func() time.Time { return fixedNow }
	h.mutations.intn = func(int) int { return 1 }
	h.mutations.newID = func() string { return "entry-1" }
	t.Cleanup(func() {
		h.session.Close()
		_ = h.provider.Close()
	})
	return h
}

// signIn installs an authenticated profile for ana.
func (h *harness) signIn(t *testing.T) *models.Profile {
	t.Helper()
	h.provider.SignInID = models.RemoteIdentity{UID: "uid-ana", Email: "ana@example.com", DisplayName: "Ana"}
	p, err := h.session.Login(context.Background(), "ana@example.com", "secreto1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	h.provider.barrier(t)
	return p
}
