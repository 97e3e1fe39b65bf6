package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
)

// memEventRepo is the minimal in-memory store the routes need; the
// participant writes check their preconditions under the lock like the
// real conditional filters do.
type memEventRepo struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]*entity.Event
}

func (r *memEventRepo) Create(_ context.Context, ev *entity.Event) error {
	r.events[ev.ID] = ev
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Event, error) {
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

func (r *memEventRepo) List(context.Context, repository.EventFilter) ([]entity.Event, error) {
	return nil, nil
}

func (r *memEventRepo) ListByParticipant(_ context.Context, userID string) ([]entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Event{}
	for _, ev := range r.events {
		if ev.FindParticipant(userID) != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *memEventRepo) Update(_ context.Context, id primitive.ObjectID, _ repository.EventUpdate) (*entity.Event, error) {
	return r.events[id], nil
}

func (r *memEventRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string) error {
	ev, ok := r.events[id]
	if !ok || ev.Status != from {
		return repository.ErrConditionalWriteFailed
	}
	ev.Status = to
	return nil
}

func (r *memEventRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.events, id)
	return nil
}

func (r *memEventRepo) AddParticipant(_ context.Context, eventID primitive.ObjectID, p entity.Participant, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok || ev.Status != entity.StatusUpcoming || len(ev.Participants) >= max || ev.FindParticipant(p.UserID) != nil {
		return repository.ErrConditionalWriteFailed
	}
	ev.Participants = append(ev.Participants, p)
	return nil
}

func (r *memEventRepo) RemoveParticipant(_ context.Context, eventID primitive.ObjectID, userID string) error {
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

func (r *memEventRepo) PatchParticipant(_ context.Context, eventID primitive.ObjectID, userID string, patch registration.ParticipantPatch) (*entity.Participant, error) {
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
	return p, nil
}

type memUserRepo struct{}

var errNoUser = errors.New("user not found")

func (memUserRepo) Create(*entity.User) error { return nil }
func (memUserRepo) GetByID(string) (*entity.User, error) { return nil, errNoUser }
func (memUserRepo) GetByEmail(string) (*entity.User, error) { return nil, errNoUser }
func (memUserRepo) Update(*entity.User) error { return nil }
func (memUserRepo) UpdatePassword(string, string) error { return nil }
func (memUserRepo) TouchLastLogin(string) error { return nil }
func (memUserRepo) SetVerified(string) error { return nil }
func (memUserRepo) IsVerified(string) (bool, error) { return true, nil }
func (memUserRepo) IncrementEventsParticipated(string) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, repo *memEventRepo, userID, role string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	svc := application.NewParticipationService(repo, memUserRepo{}, nil, nil, &config.Config{}, log)
	h := NewParticipantHandler(svc, log)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
	})
	r.POST("/api/events/:id/participants", h.Register)
	r.DELETE("/api/events/:id/participants", h.Unregister)
	r.PUT("/api/events/:id/participants", h.UpdateRegistration)
	r.GET("/api/events/:id/participants", h.Summary)
	r.GET("/api/my-events", h.MyEvents)
	return r
}

func upcoming(max int) *entity.Event {
	return &entity.Event{
		ID:              primitive.NewObjectID(),
		Title:           "Lakeshore Run",
		Date:            time.Now().Add(60 * 24 * time.Hour),
		Status:          entity.StatusUpcoming,
		MaxParticipants: max,
		OrganizerID:     uuid.NewString(),
	}
}

const registerBody = `{
	"bike_info": {"make": "Honda", "model": "Shadow", "year": 2018},
	"emergency_contact": {"name": "Jo Dean", "phone": "+13365550123"}
}`

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoute(t *testing.T) {
	uid := uuid.NewString()

	t.Run("created", func(t *testing.T) {
		ev := upcoming(10)
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)

		w := doJSON(r, http.MethodPost, "/api/events/"+ev.ID.Hex()+"/participants", registerBody)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var env envelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		if !env.Success {
			t.Errorf("success = false: %s", w.Body.String())
		}
		var p entity.Participant
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("bad participant payload: %v", err)
		}
		if p.UserID != uid || p.PaymentStatus != entity.PaymentPending {
			t.Errorf("participant = %+v", p)
		}
	})

	t.Run("full event maps to 400 with message", func(t *testing.T) {
		ev := upcoming(1)
		ev.Participants = []entity.Participant{{UserID: uuid.NewString()}}
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)

		w := doJSON(r, http.MethodPost, "/api/events/"+ev.ID.Hex()+"/participants", registerBody)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if !strings.Contains(w.Body.String(), "event is full") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("unknown event maps to 404", func(t *testing.T) {
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)
		w := doJSON(r, http.MethodPost, "/api/events/"+primitive.NewObjectID().Hex()+"/participants", registerBody)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid payload maps to 400 with details", func(t *testing.T) {
		ev := upcoming(10)
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)
		w := doJSON(r, http.MethodPost, "/api/events/"+ev.ID.Hex()+"/participants", `{"bike_info": {"make": "Honda"}}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestUnregisterRoute(t *testing.T) {
	uid := uuid.NewString()

	t.Run("inside window maps to 400", func(t *testing.T) {
		ev := upcoming(10)
		ev.Date = time.Now().Add(24 * time.Hour)
		ev.Participants = []entity.Participant{{UserID: uid}}
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)

		w := doJSON(r, http.MethodDelete, "/api/events/"+ev.ID.Hex()+"/participants", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if !strings.Contains(w.Body.String(), "less than 7 days") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("ok outside window", func(t *testing.T) {
		ev := upcoming(10)
		ev.Participants = []entity.Participant{{UserID: uid}}
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uid, entity.RoleParticipant)

		w := doJSON(r, http.MethodDelete, "/api/events/"+ev.ID.Hex()+"/participants", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})
}

func TestSummaryRoute(t *testing.T) {
	ev := upcoming(10)
	ev.Participants = []entity.Participant{{UserID: uuid.NewString()}}

	t.Run("organizer sees roster", func(t *testing.T) {
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, ev.OrganizerID, entity.RoleOrganizer)
		w := doJSON(r, http.MethodGet, "/api/events/"+ev.ID.Hex()+"/participants", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "Lakeshore Run") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("stranger gets 403", func(t *testing.T) {
		repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
		r := setupRouter(t, repo, uuid.NewString(), entity.RoleParticipant)
		w := doJSON(r, http.MethodGet, "/api/events/"+ev.ID.Hex()+"/participants", "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})
}

func TestPatchRegistrationRoute(t *testing.T) {
	uid := uuid.NewString()
	ev := upcoming(10)
	ev.Participants = []entity.Participant{{
		UserID:          uid,
		BikeInfo:        entity.ParticipantBike{Make: "Honda", Model: "Shadow", Year: 2018},
		SpecialRequests: "camping spot",
	}}
	repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{ev.ID: ev}}
	r := setupRouter(t, repo, uid, entity.RoleParticipant)

	w := doJSON(r, http.MethodPut, "/api/events/"+ev.ID.Hex()+"/participants", `{"special_requests": ""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	stored, _ := repo.GetByID(context.Background(), ev.ID)
	if got := stored.Participants[0].SpecialRequests; got != "" {
		t.Errorf("special requests = %q, want cleared", got)
	}
	if stored.Participants[0].BikeInfo.Make != "Honda" {
		t.Error("bike info changed by unrelated patch")
	}
}

func TestMyEventsRoute(t *testing.T) {
	uid := uuid.NewString()
	mine := upcoming(10)
	mine.Participants = []entity.Participant{{UserID: uid, SpecialRequests: "camping spot"}}
	other := upcoming(10)
	other.Participants = []entity.Participant{{UserID: uuid.NewString()}}
	repo := &memEventRepo{events: map[primitive.ObjectID]*entity.Event{mine.ID: mine, other.ID: other}}
	r := setupRouter(t, repo, uid, entity.RoleParticipant)

	w := doJSON(r, http.MethodGet, "/api/my-events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	var items []struct {
		Event          entity.Event        `json:"event"`
		MyRegistration *entity.Participant `json:"my_registration"`
	}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d events, want only the one with my registration", len(items))
	}
	if items[0].Event.ID != mine.ID {
		t.Errorf("event id = %s, want %s", items[0].Event.ID.Hex(), mine.ID.Hex())
	}
	if items[0].MyRegistration == nil || items[0].MyRegistration.UserID != uid {
		t.Errorf("my_registration = %+v", items[0].MyRegistration)
	}
}
