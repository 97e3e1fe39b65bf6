package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
)

// fakeEventRepo mimics the store's conditional-write behavior in memory:
// every participant mutation checks its precondition under the lock and
// reports ErrConditionalWriteFailed on a miss, exactly like the real
// filter-based writes.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]*entity.Event
}

func newFakeEventRepo(evs ...*entity.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: map[primitive.ObjectID]*entity.Event{}}
	for _, ev := range evs {
		r.events[ev.ID] = ev
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, ev *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	r.events[ev.ID] = ev
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	cp.Participants = append([]entity.Participant(nil), ev.Participants...)
	return &cp, nil
}

func (r *fakeEventRepo) List(_ context.Context, _ repository.EventFilter) ([]entity.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListByParticipant(_ context.Context, userID string) ([]entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Event
	for _, ev := range r.events {
		if ev.FindParticipant(userID) != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id primitive.ObjectID, _ repository.EventUpdate) (*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return ev, nil
}

func (r *fakeEventRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok || ev.Status != from {
		return repository.ErrConditionalWriteFailed
	}
	ev.Status = to
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) AddParticipant(_ context.Context, eventID primitive.ObjectID, p entity.Participant, maxParticipants int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok || ev.Status != entity.StatusUpcoming ||
		len(ev.Participants) >= maxParticipants || ev.FindParticipant(p.UserID) != nil {
		return repository.ErrConditionalWriteFailed
	}
	ev.Participants = append(ev.Participants, p)
	return nil
}

func (r *fakeEventRepo) RemoveParticipant(_ context.Context, eventID primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok || ev.FindParticipant(userID) == nil {
		return repository.ErrConditionalWriteFailed
	}
	kept := ev.Participants[:0]
	for _, p := range ev.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	ev.Participants = kept
	return nil
}

func (r *fakeEventRepo) PatchParticipant(_ context.Context, eventID primitive.ObjectID, userID string, patch registration.ParticipantPatch) (*entity.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return nil, repository.ErrConditionalWriteFailed
	}
	p, err := registration.ApplyParticipantPatch(ev, userID, patch)
	if err != nil {
		return nil, repository.ErrConditionalWriteFailed
	}
	cp := *p
	return &cp, nil
}

var _ repository.EventRepository = (*fakeEventRepo)(nil)

// fakeUserRepo records counter bumps and serves a single user for the
// email lookups.
type fakeUserRepo struct {
	mu      sync.Mutex
	bumps   map[string]int
	byID    map[string]*entity.User
	bumpErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{bumps: map[string]int{}, byID: map[string]*entity.User{}}
}

func (r *fakeUserRepo) Create(u *entity.User) error { r.byID[u.ID] = u; return nil }

func (r *fakeUserRepo) GetByID(id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (r *fakeUserRepo) GetByEmail(string) (*entity.User, error) { return nil, errors.New("not found") }
func (r *fakeUserRepo) Update(*entity.User) error               { return nil }
func (r *fakeUserRepo) UpdatePassword(string, string) error     { return nil }
func (r *fakeUserRepo) TouchLastLogin(string) error             { return nil }
func (r *fakeUserRepo) SetVerified(string) error                { return nil }
func (r *fakeUserRepo) IsVerified(string) (bool, error)         { return true, nil }

func (r *fakeUserRepo) IncrementEventsParticipated(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bumpErr != nil {
		return r.bumpErr
	}
	r.bumps[id]++
	return nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func testInput() registration.RegisterInput {
	return registration.RegisterInput{
		BikeInfo:         entity.ParticipantBike{Make: "Indian", Model: "Scout", Year: 2021},
		EmergencyContact: entity.ParticipantContact{Name: "Sam Rowe", Phone: "+13365550171"},
	}
}

func testEvent(max int) *entity.Event {
	return &entity.Event{
		ID:              primitive.NewObjectID(),
		Title:           "Blue Ridge Poker Run",
		Date:            time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Status:          entity.StatusUpcoming,
		MaxParticipants: max,
		OrganizerID:     uuid.NewString(),
	}
}

func newService(events repository.EventRepository, users repository.UserRepository) *ParticipationService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := NewParticipationService(events, users, nil, nil, &config.Config{}, log)
	s.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestRegisterPersistsAndBumpsCounter(t *testing.T) {
	ev := testEvent(10)
	repo := newFakeEventRepo(ev)
	users := newFakeUserRepo()
	svc := newService(repo, users)
	uid := uuid.NewString()

	p, err := svc.Register(context.Background(), ev.ID.Hex(), uid, testInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if p.UserID != uid || p.PaymentStatus != entity.PaymentPending {
		t.Errorf("participant = %+v", p)
	}
	stored, _ := repo.GetByID(context.Background(), ev.ID)
	if stored.ParticipantCount() != 1 {
		t.Errorf("stored participants = %d, want 1", stored.ParticipantCount())
	}
	if users.bumps[uid] != 1 {
		t.Errorf("counter bumps = %d, want 1", users.bumps[uid])
	}
}

func TestRegisterCounterFailureDoesNotFailRegistration(t *testing.T) {
	ev := testEvent(10)
	users := newFakeUserRepo()
	users.bumpErr = errors.New("postgres down")
	svc := newService(newFakeEventRepo(ev), users)

	if _, err := svc.Register(context.Background(), ev.ID.Hex(), uuid.NewString(), testInput()); err != nil {
		t.Fatalf("Register() error = %v, want nil despite counter failure", err)
	}
}

func TestRegisterRejections(t *testing.T) {
	uid := uuid.NewString()

	cases := []struct {
		name    string
		setup   func(*entity.Event)
		wantErr error
	}{
		{"closed", func(ev *entity.Event) { ev.Status = entity.StatusActive }, registration.ErrRegistrationClosed},
		{"full", func(ev *entity.Event) {
			ev.MaxParticipants = 1
			ev.Participants = []entity.Participant{{UserID: uuid.NewString()}}
		}, registration.ErrEventFull},
		{"duplicate", func(ev *entity.Event) {
			ev.Participants = []entity.Participant{{UserID: uid}}
		}, registration.ErrAlreadyRegistered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := testEvent(10)
			tc.setup(ev)
			svc := newService(newFakeEventRepo(ev), newFakeUserRepo())
			_, err := svc.Register(context.Background(), ev.ID.Hex(), uid, testInput())
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	t.Run("unknown event", func(t *testing.T) {
		svc := newService(newFakeEventRepo(), newFakeUserRepo())
		_, err := svc.Register(context.Background(), primitive.NewObjectID().Hex(), uid, testInput())
		if !errors.Is(err, registration.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("malformed event id", func(t *testing.T) {
		svc := newService(newFakeEventRepo(), newFakeUserRepo())
		_, err := svc.Register(context.Background(), "not-an-id", uid, testInput())
		if !errors.Is(err, ErrInvalidEventID) {
			t.Errorf("error = %v, want ErrInvalidEventID", err)
		}
	})
}

// Two riders race for the last slot. Whatever the interleaving, exactly
// one wins and the loser gets the full-event rejection, never a duplicate
// entry or an over-capacity roster.
func TestRegisterConcurrentLastSlot(t *testing.T) {
	for i := 0; i < 50; i++ {
		ev := testEvent(1)
		repo := newFakeEventRepo(ev)
		svc := newService(repo, newFakeUserRepo())

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for n := 0; n < 2; n++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, errs[n] = svc.Register(context.Background(), ev.ID.Hex(), uuid.NewString(), testInput())
			}(n)
		}
		wg.Wait()

		var wins, fulls int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, registration.ErrEventFull):
				fulls++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || fulls != 1 {
			t.Fatalf("wins = %d fulls = %d, want exactly one of each", wins, fulls)
		}
		stored, _ := repo.GetByID(context.Background(), ev.ID)
		if stored.ParticipantCount() != 1 {
			t.Fatalf("stored participants = %d, want 1", stored.ParticipantCount())
		}
	}
}

func TestRegisterConcurrentSameUser(t *testing.T) {
	ev := testEvent(10)
	repo := newFakeEventRepo(ev)
	svc := newService(repo, newFakeUserRepo())
	uid := uuid.NewString()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Register(context.Background(), ev.ID.Hex(), uid, testInput())
		}(n)
	}
	wg.Wait()

	var wins, dups int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, registration.ErrAlreadyRegistered):
			dups++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || dups != 1 {
		t.Fatalf("wins = %d dups = %d, want exactly one of each", wins, dups)
	}
	stored, _ := repo.GetByID(context.Background(), ev.ID)
	if stored.ParticipantCount() != 1 {
		t.Fatalf("stored participants = %d, want 1", stored.ParticipantCount())
	}
}

func TestUnregister(t *testing.T) {
	uid := uuid.NewString()

	t.Run("inside cancellation window", func(t *testing.T) {
		ev := testEvent(10)
		ev.Participants = []entity.Participant{{UserID: uid}}
		svc := newService(newFakeEventRepo(ev), newFakeUserRepo())
		svc.now = func() time.Time { return ev.Date.Add(-24 * time.Hour) }
		err := svc.Unregister(context.Background(), ev.ID.Hex(), uid)
		if !errors.Is(err, registration.ErrCancellationWindowClosed) {
			t.Errorf("error = %v, want ErrCancellationWindowClosed", err)
		}
	})

	t.Run("removes the entry", func(t *testing.T) {
		ev := testEvent(10)
		ev.Participants = []entity.Participant{{UserID: uid}, {UserID: uuid.NewString()}}
		repo := newFakeEventRepo(ev)
		svc := newService(repo, newFakeUserRepo())
		if err := svc.Unregister(context.Background(), ev.ID.Hex(), uid); err != nil {
			t.Fatalf("Unregister() error = %v", err)
		}
		stored, _ := repo.GetByID(context.Background(), ev.ID)
		if stored.FindParticipant(uid) != nil {
			t.Error("entry still present after unregister")
		}
		if stored.ParticipantCount() != 1 {
			t.Errorf("participants = %d, want 1", stored.ParticipantCount())
		}
	})

	t.Run("not registered", func(t *testing.T) {
		ev := testEvent(10)
		svc := newService(newFakeEventRepo(ev), newFakeUserRepo())
		err := svc.Unregister(context.Background(), ev.ID.Hex(), uid)
		if !errors.Is(err, registration.ErrNotRegistered) {
			t.Errorf("error = %v, want ErrNotRegistered", err)
		}
	})
}

func TestUpdateRegistration(t *testing.T) {
	uid := uuid.NewString()
	ev := testEvent(10)
	ev.Participants = []entity.Participant{{
		UserID:   uid,
		BikeInfo: entity.ParticipantBike{Make: "Indian", Model: "Scout", Year: 2021},
	}}
	repo := newFakeEventRepo(ev)
	svc := newService(repo, newFakeUserRepo())

	model := "Chief"
	p, err := svc.UpdateRegistration(context.Background(), ev.ID.Hex(), uid, registration.ParticipantPatch{
		BikeInfo: &registration.BikePatch{Model: &model},
	})
	if err != nil {
		t.Fatalf("UpdateRegistration() error = %v", err)
	}
	if p.BikeInfo.Model != "Chief" || p.BikeInfo.Make != "Indian" {
		t.Errorf("bike = %+v", p.BikeInfo)
	}

	_, err = svc.UpdateRegistration(context.Background(), ev.ID.Hex(), uuid.NewString(), registration.ParticipantPatch{})
	if !errors.Is(err, registration.ErrNotRegistered) {
		t.Errorf("error = %v, want ErrNotRegistered", err)
	}
}

func TestSummaryAuthorization(t *testing.T) {
	ev := testEvent(10)
	ev.Participants = []entity.Participant{{UserID: uuid.NewString()}}
	svc := newService(newFakeEventRepo(ev), newFakeUserRepo())

	if _, err := svc.Summary(context.Background(), ev.ID.Hex(), ev.OrganizerID, entity.RoleOrganizer); err != nil {
		t.Errorf("organizer: error = %v", err)
	}
	if _, err := svc.Summary(context.Background(), ev.ID.Hex(), uuid.NewString(), entity.RoleAdmin); err != nil {
		t.Errorf("admin: error = %v", err)
	}
	_, err := svc.Summary(context.Background(), ev.ID.Hex(), uuid.NewString(), entity.RoleParticipant)
	if !errors.Is(err, registration.ErrForbidden) {
		t.Errorf("participant: error = %v, want ErrForbidden", err)
	}
}
