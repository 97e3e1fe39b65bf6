package application

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
	"github.com/rumbleroad/pokerrun-api/pkg/mailer"
)

// ParticipationService orchestrates rider registrations. Every decision is
// made by the registration package on a fresh snapshot; every mutation is
// one conditional write. When the write misses, the snapshot went stale
// between read and write, so the service re-reads and asks the engine again
// to return the precise rejection instead of a generic conflict.
type ParticipationService struct {
	events repository.EventRepository
	users  repository.UserRepository
	rdb    *redis.Client
	mailQ  *helpers.RabbitPublisher
	cfg    *config.Config
	log    *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewParticipationService(events repository.EventRepository, users repository.UserRepository, rdb *redis.Client, mailQ *helpers.RabbitPublisher, cfg *config.Config, log *logrus.Logger) *ParticipationService {
	return &ParticipationService{
		events: events,
		users:  users,
		rdb:    rdb,
		mailQ:  mailQ,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (s *ParticipationService) event(ctx context.Context, id string) (*entity.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidEventID
	}
	ev, err := s.events.GetByID(ctx, oid)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, registration.ErrNotFound
	}
	return ev, err
}

// Register joins userID to the event. On a conditional-write miss the
// snapshot is re-read once; if the engine then approves again the race was
// transient churn (someone left and rejoined), and one retry resolves it.
func (s *ParticipationService) Register(ctx context.Context, eventID, userID string, in registration.RegisterInput) (*entity.Participant, error) {
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		p, err := registration.Register(ev, userID, in, s.now())
		if err != nil {
			return nil, err
		}
		err = s.events.AddParticipant(ctx, ev.ID, p, ev.MaxParticipants)
		if err == nil {
			s.invalidate(ctx, eventID)
			s.afterRegister(ctx, ev, userID)
			return &p, nil
		}
		if !errors.Is(err, repository.ErrConditionalWriteFailed) {
			return nil, err
		}
		ev, err = s.event(ctx, eventID)
		if err != nil {
			return nil, err
		}
	}
	// Two misses on a snapshot the engine approved means the aggregate is
	// churning faster than we can read it.
	return nil, registration.ErrUnavailable
}

func (s *ParticipationService) afterRegister(ctx context.Context, ev *entity.Event, userID string) {
	if err := s.users.IncrementEventsParticipated(userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("could not bump participation counter")
	}
	if u, err := s.users.GetByID(userID); err == nil {
		s.enqueueEmail(ctx, mailer.EmailJob{
			To:       u.Email,
			Template: mailer.TemplateRegistrationConfirmed,
			Data: map[string]any{
				"Name":          u.Name,
				"EventTitle":    ev.Title,
				"EventDate":     ev.Date.Format("January 2, 2006"),
				"Fee":           ev.RegistrationFee,
				"PaymentStatus": entity.PaymentPending,
			},
		})
	}
}

// Unregister removes userID's registration, honoring the cancellation
// window. The remove is conditional on the entry still existing.
func (s *ParticipationService) Unregister(ctx context.Context, eventID, userID string) error {
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return err
	}
	if err := registration.Unregister(ev, userID, s.now()); err != nil {
		return err
	}
	if err := s.events.RemoveParticipant(ctx, ev.ID, userID); err != nil {
		if errors.Is(err, repository.ErrConditionalWriteFailed) {
			// Someone (the rider on another device, or an admin) already
			// pulled the entry. The desired state holds.
			return registration.ErrNotRegistered
		}
		return err
	}
	s.invalidate(ctx, eventID)
	if u, err := s.users.GetByID(userID); err == nil {
		s.enqueueEmail(ctx, mailer.EmailJob{
			To:       u.Email,
			Template: mailer.TemplateRegistrationCancelled,
			Data: map[string]any{
				"Name":       u.Name,
				"EventTitle": ev.Title,
				"EventDate":  ev.Date.Format("January 2, 2006"),
			},
		})
	}
	return nil
}

// UpdateRegistration patches userID's own registration details. No window
// or capacity rules apply to edits.
func (s *ParticipationService) UpdateRegistration(ctx context.Context, eventID, userID string, patch registration.ParticipantPatch) (*entity.Participant, error) {
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := registration.ApplyParticipantPatch(ev, userID, patch); err != nil {
		return nil, err
	}
	p, err := s.events.PatchParticipant(ctx, ev.ID, userID, patch)
	if errors.Is(err, repository.ErrConditionalWriteFailed) {
		return nil, registration.ErrNotRegistered
	}
	if err == nil {
		s.invalidate(ctx, eventID)
	}
	return p, err
}

// Summary returns the organizer roster for the event.
func (s *ParticipationService) Summary(ctx context.Context, eventID, requesterID, requesterRole string) (registration.Summary, error) {
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return registration.Summary{}, err
	}
	return registration.SummaryForOrganizer(ev, requesterID, requesterRole)
}

// MyEvents lists every event the user is registered for.
func (s *ParticipationService) MyEvents(ctx context.Context, userID string) ([]entity.Event, error) {
	return s.events.ListByParticipant(ctx, userID)
}

func (s *ParticipationService) invalidate(ctx context.Context, eventID string) {
	if s.rdb == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.rdb, eventCachePrefix+eventID); err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Warn("could not invalidate event cache")
	}
}

func (s *ParticipationService) enqueueEmail(ctx context.Context, job mailer.EmailJob) {
	if s.mailQ == nil || !s.cfg.MailSendEnabled {
		return
	}
	if err := s.mailQ.PublishJSON(ctx, job); err != nil {
		s.log.WithError(err).WithField("template", job.Template).Warn("could not queue email")
	}
}
