package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
)

const eventCachePrefix = "event:detail:"

// EventService owns the event lifecycle: creation, organizer edits, status
// transitions, listings and search. Participant registrations live in
// ParticipationService.
type EventService struct {
	events repository.EventRepository
	rdb    *redis.Client
	es     *elasticsearch.Client
	cfg    *config.Config
	log    *logrus.Logger
}

func NewEventService(events repository.EventRepository, rdb *redis.Client, es *elasticsearch.Client, cfg *config.Config, log *logrus.Logger) *EventService {
	return &EventService{events: events, rdb: rdb, es: es, cfg: cfg, log: log}
}

// CreateEventInput is the organizer's payload after transport validation.
type CreateEventInput struct {
	Title           string
	Description     string
	Date            time.Time
	StartLocation   entity.Location
	EndLocation     entity.Location
	Stops           []entity.Stop
	RegistrationFee float64
	MaxParticipants int
	Prizes          []entity.Prize
	Rules           string
	Requirements    []string
	Images          []string
}

// Create makes a new upcoming event owned by the caller. Only organizers
// and admins get here; the role gate sits in front of the route.
func (s *EventService) Create(ctx context.Context, organizerID string, in CreateEventInput) (*entity.Event, error) {
	ev := &entity.Event{
		Title:           in.Title,
		Description:     in.Description,
		Date:            in.Date,
		StartLocation:   in.StartLocation,
		EndLocation:     in.EndLocation,
		Stops:           in.Stops,
		RegistrationFee: in.RegistrationFee,
		MaxParticipants: in.MaxParticipants,
		Prizes:          in.Prizes,
		Status:          entity.StatusUpcoming,
		OrganizerID:     organizerID,
		Rules:           in.Rules,
		Requirements:    in.Requirements,
		Images:          in.Images,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}
	s.index(ctx, ev)
	return ev, nil
}

func (s *EventService) List(ctx context.Context, f repository.EventFilter) ([]entity.Event, error) {
	return s.events.List(ctx, f)
}

// Get serves the event detail cache-aside: redis hit wins, miss reads
// Mongo and back-fills with a short TTL. Mutations invalidate the key.
func (s *EventService) Get(ctx context.Context, id string) (*entity.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidEventID
	}
	var cached entity.Event
	if hit, err := helpers.RedisGetJSON(ctx, s.rdb, eventCachePrefix+id, &cached); err == nil && hit {
		return &cached, nil
	}
	ev, err := s.events.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := helpers.RedisSetJSON(ctx, s.rdb, eventCachePrefix+id, ev, s.cfg.EventCacheTTL); err != nil {
		s.log.WithError(err).WithField("event_id", id).Warn("could not cache event detail")
	}
	return ev, nil
}

// getFresh bypasses the cache; registration decisions must not run on a
// stale snapshot.
func (s *EventService) getFresh(ctx context.Context, id string) (*entity.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidEventID
	}
	return s.events.GetByID(ctx, oid)
}

// Update applies an organizer edit after the ownership check.
func (s *EventService) Update(ctx context.Context, id, requesterID, requesterRole string, upd repository.EventUpdate) (*entity.Event, error) {
	ev, err := s.getFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if !registration.CanManageEvent(ev, requesterID, requesterRole) {
		return nil, registration.ErrForbidden
	}
	updated, err := s.events.Update(ctx, ev.ID, upd)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.index(ctx, updated)
	return updated, nil
}

func (s *EventService) Delete(ctx context.Context, id, requesterID, requesterRole string) error {
	ev, err := s.getFresh(ctx, id)
	if err != nil {
		return err
	}
	if !registration.CanManageEvent(ev, requesterID, requesterRole) {
		return registration.ErrForbidden
	}
	if err := s.events.Delete(ctx, ev.ID); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.deindex(ctx, id)
	return nil
}

// UpdateStatus moves the lifecycle forward. The write is conditional on
// the status the caller saw, so concurrent transitions cannot skip states.
func (s *EventService) UpdateStatus(ctx context.Context, id, requesterID, requesterRole, to string) (*entity.Event, error) {
	if !entity.ValidStatus(to) {
		return nil, ErrInvalidTransition
	}
	ev, err := s.getFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if !registration.CanManageEvent(ev, requesterID, requesterRole) {
		return nil, registration.ErrForbidden
	}
	if !entity.CanTransition(ev.Status, to) {
		return nil, ErrInvalidTransition
	}
	if err := s.events.UpdateStatus(ctx, ev.ID, ev.Status, to); err != nil {
		if err == repository.ErrConditionalWriteFailed {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	s.invalidate(ctx, id)
	ev.Status = to
	s.index(ctx, ev)
	return ev, nil
}

// Search runs a full-text query over title, description and locations.
func (s *EventService) Search(ctx context.Context, query string, size int) ([]entity.Event, error) {
	if size <= 0 || size > 50 {
		size = 20
	}
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^3", "description", "start_location.name", "start_location.address", "end_location.name"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.cfg.ESEventsIndex),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}

	// The index holds a projection; the store stays authoritative for the
	// documents returned to clients.
	events := make([]entity.Event, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ev, err := s.Get(ctx, h.ID)
		if err != nil {
			continue
		}
		events = append(events, *ev)
	}
	return events, nil
}

// eventDoc is the searchable projection indexed per event.
type eventDoc struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	StartLocation any       `json:"start_location"`
	EndLocation   any       `json:"end_location"`
}

// index mirrors the event into Elasticsearch best-effort; search lag is
// acceptable, failed writes are not.
func (s *EventService) index(ctx context.Context, ev *entity.Event) {
	if s.es == nil {
		return
	}
	doc, err := json.Marshal(eventDoc{
		Title:         ev.Title,
		Description:   ev.Description,
		Date:          ev.Date,
		Status:        ev.Status,
		StartLocation: ev.StartLocation,
		EndLocation:   ev.EndLocation,
	})
	if err != nil {
		return
	}
	req := esapi.IndexRequest{
		Index:      s.cfg.ESEventsIndex,
		DocumentID: ev.ID.Hex(),
		Body:       bytes.NewReader(doc),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		s.log.WithError(err).WithField("event_id", ev.ID.Hex()).Warn("could not index event")
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.log.WithField("event_id", ev.ID.Hex()).WithField("status", res.Status()).Warn("could not index event")
	}
}

func (s *EventService) deindex(ctx context.Context, id string) {
	if s.es == nil {
		return
	}
	req := esapi.DeleteRequest{Index: s.cfg.ESEventsIndex, DocumentID: id}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		s.log.WithError(err).WithField("event_id", id).Warn("could not deindex event")
		return
	}
	defer res.Body.Close()
}

func (s *EventService) invalidate(ctx context.Context, id string) {
	if err := helpers.RedisDel(ctx, s.rdb, eventCachePrefix+id); err != nil {
		s.log.WithError(err).WithField("event_id", id).Warn("could not invalidate event cache")
	}
}
