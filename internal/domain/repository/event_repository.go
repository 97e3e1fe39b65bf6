package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
)

// ErrConditionalWriteFailed is returned by the participant mutations when
// the conditional filter matched no document: the event is gone, or the
// precondition that held on the snapshot no longer holds. The caller
// re-reads the aggregate and re-runs the engine to find out which.
var ErrConditionalWriteFailed = errors.New("conditional write matched no document")

// ErrEventNotFound is returned when an event id resolves to nothing.
var ErrEventNotFound = errors.New("event not found")

// EventFilter narrows event listings.
type EventFilter struct {
	Status string
	// Day restricts to events on that calendar day when non-zero.
	Day time.Time
}

// EventUpdate carries the organizer-editable event fields. Nil pointers
// leave the stored value alone.
type EventUpdate struct {
	Title           *string
	Description     *string
	Date            *time.Time
	StartLocation   *entity.Location
	EndLocation     *entity.Location
	Stops           *[]entity.Stop
	RegistrationFee *float64
	MaxParticipants *int
	Prizes          *[]entity.Prize
	Rules           *string
	Requirements    *[]string
	Images          *[]string
}

// EventRepository persists Event aggregates. The three participant
// mutations are single conditional writes: the filter restates the
// invariant the registration engine already checked, so a concurrent
// writer that invalidated it causes ErrConditionalWriteFailed instead of
// a corrupt aggregate.
type EventRepository interface {
	Create(ctx context.Context, ev *entity.Event) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Event, error)
	List(ctx context.Context, f EventFilter) ([]entity.Event, error)
	ListByParticipant(ctx context.Context, userID string) ([]entity.Event, error)
	Update(ctx context.Context, id primitive.ObjectID, upd EventUpdate) (*entity.Event, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AddParticipant appends p only if the event is still upcoming, below
	// capacity, and has no entry for p.UserID.
	AddParticipant(ctx context.Context, eventID primitive.ObjectID, p entity.Participant, maxParticipants int) error
	// RemoveParticipant pulls the entry for userID if present.
	RemoveParticipant(ctx context.Context, eventID primitive.ObjectID, userID string) error
	// PatchParticipant applies the patch to userID's entry if present and
	// returns the updated registration.
	PatchParticipant(ctx context.Context, eventID primitive.ObjectID, userID string, patch registration.ParticipantPatch) (*entity.Participant, error)
}
