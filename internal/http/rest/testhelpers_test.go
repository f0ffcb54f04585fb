package rest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/planetcalm/petmap/config"
	deps "github.com/planetcalm/petmap/internal/debs"
	"github.com/planetcalm/petmap/internal/geo"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/websockets"
	"github.com/rs/zerolog"
)

// fakeMemberStore is an in-memory MemberStore for handler tests.
type fakeMemberStore struct {
	mu        sync.Mutex
	members   []model.Member
	createErr error
}

func (f *fakeMemberStore) CreateMember(_ context.Context, member model.Member) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return model.Member{}, f.createErr
	}

	member.ID = uuid.New()
	member.CreatedAt = time.Now().UTC()
	f.members = append(f.members, member)
	return member, nil
}

func (f *fakeMemberStore) visible() []model.Member {
	var out []model.Member
	for i := len(f.members) - 1; i >= 0; i-- {
		m := f.members[i]
		if m.IsActive && m.IsVerified {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMemberStore) ListActiveMembers(_ context.Context) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible(), nil
}

func (f *fakeMemberStore) CountMembers(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.visible())), nil
}

func (f *fakeMemberStore) RecentMembers(_ context.Context, limit int) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visible := f.visible()
	if len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}

func (f *fakeMemberStore) GetMemberByID(_ context.Context, id uuid.UUID) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Member{}, ErrMemberNotFound
}

// fakeSubscriberStore is an in-memory SubscriberStore keyed by lowercased
// email, mirroring the store's uniqueness constraint.
type fakeSubscriberStore struct {
	mu          sync.Mutex
	subscribers map[string]model.Subscriber
}

func newFakeSubscriberStore() *fakeSubscriberStore {
	return &fakeSubscriberStore{subscribers: make(map[string]model.Subscriber)}
}

func (f *fakeSubscriberStore) Subscribe(_ context.Context, firstName, email string) (model.Subscriber, SubscribeOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = util.NormalizeEmail(email)
	if existing, ok := f.subscribers[email]; ok {
		if existing.Status == model.SubscriberUnsubscribed {
			existing.Status = model.SubscriberActive
			existing.FirstName = firstName
			f.subscribers[email] = existing
			return existing, SubscribeReactivated, nil
		}
		return existing, SubscribeExisting, nil
	}

	created := model.Subscriber{
		ID:          uuid.New(),
		FirstName:   firstName,
		Email:       email,
		Preferences: model.Preferences{Whispers: true, Updates: true},
		Source:      model.SourceWebsite,
		Status:      model.SubscriberActive,
		CreatedAt:   time.Now().UTC(),
	}
	f.subscribers[email] = created
	return created, SubscribeCreated, nil
}

func (f *fakeSubscriberStore) Unsubscribe(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = util.NormalizeEmail(email)
	existing, ok := f.subscribers[email]
	if !ok {
		return ErrSubscriberNotFound
	}
	existing.Status = model.SubscriberUnsubscribed
	f.subscribers[email] = existing
	return nil
}

func (f *fakeSubscriberStore) ActiveSubscriberCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, s := range f.subscribers {
		if s.Status == model.SubscriberActive {
			count++
		}
	}
	return count, nil
}

// scriptedGeocoder returns a fixed answer for every query.
type scriptedGeocoder struct {
	mu    sync.Mutex
	calls int
	match *geo.Match
	err   error
}

func (s *scriptedGeocoder) Geocode(_ context.Context, _ string) (*geo.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.match, s.err
}

// fakeBroadcaster records fan-out events instead of pushing to sockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	pins   []websockets.NewPinEvent
	counts []int64
}

func (f *fakeBroadcaster) BroadcastNewPin(pin websockets.NewPinEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, pin)
}

func (f *fakeBroadcaster) BroadcastMemberCount(count int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, count)
}

func (f *fakeBroadcaster) pinEvents() []websockets.NewPinEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]websockets.NewPinEvent(nil), f.pins...)
}

func (f *fakeBroadcaster) countEvents() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.counts...)
}

// fakeCRM signals each forward on a channel so tests can wait for the
// fire-and-forget goroutine.
type fakeCRM struct {
	forwards chan model.Member
	err      error
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{forwards: make(chan model.Member, 8)}
}

func (f *fakeCRM) ForwardMember(_ context.Context, member model.Member) error {
	f.forwards <- member
	return f.err
}

type testEnv struct {
	api         *API
	members     *fakeMemberStore
	subscribers *fakeSubscriberStore
	geocoder    *scriptedGeocoder
	broadcast   *fakeBroadcaster
	crm         *fakeCRM
}

func newTestEnv(cfg *config.Config) *testEnv {
	if cfg == nil {
		cfg = &config.Config{Port: 0, FrontendURL: "http://localhost:3000"}
	}

	env := &testEnv{
		members:     &fakeMemberStore{},
		subscribers: newFakeSubscriberStore(),
		geocoder:    &scriptedGeocoder{},
		broadcast:   &fakeBroadcaster{},
		crm:         newFakeCRM(),
	}

	log := zerolog.Nop()
	env.api = &API{
		Config:      cfg,
		Deps:        &deps.Dependencies{WebSocket: websockets.NewManager(log), Log: log},
		Log:         log,
		Members:     env.members,
		Subscribers: env.subscribers,
		Resolver:    geo.NewResolver(env.geocoder, geo.NewSeededJitterer(1), time.Second, log),
		Broadcast:   env.broadcast,
		CRM:         env.crm,
	}
	return env
}
