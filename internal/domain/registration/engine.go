// Package registration is the single authority for the participant
// invariants of an event: capacity, uniqueness, the registration window
// and the cancellation window. Every caller that mutates an event's
// participant list (HTTP handlers, seed jobs, admin tools) goes through
// these functions; the persistence layer only re-expresses the verdict as
// a conditional write so two racing callers cannot both take the last slot.
//
// The package is pure: it inspects an Event snapshot and either returns a
// typed error or the value to persist. It never touches storage itself.
package registration

import (
	"time"

	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
)

// CancellationWindow is how close to the event date a rider may still
// unregister. At exactly the boundary cancellation is still allowed.
const CancellationWindow = 7 * 24 * time.Hour

// RegisterInput is what a rider submits when joining a run.
type RegisterInput struct {
	BikeInfo         entity.ParticipantBike
	EmergencyContact entity.ParticipantContact
	SpecialRequests  string
}

// Validate checks the required participant fields and returns FieldErrors
// listing everything missing. Bike color, contact relationship and special
// requests are optional.
func (in RegisterInput) Validate() error {
	fe := FieldErrors{}
	if in.BikeInfo.Make == "" {
		fe["bike_info.make"] = "is required"
	}
	if in.BikeInfo.Model == "" {
		fe["bike_info.model"] = "is required"
	}
	if in.BikeInfo.Year == 0 {
		fe["bike_info.year"] = "is required"
	}
	if in.EmergencyContact.Name == "" {
		fe["emergency_contact.name"] = "is required"
	}
	if in.EmergencyContact.Phone == "" {
		fe["emergency_contact.phone"] = "is required"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Register decides whether userID may join ev and, if so, returns the
// Participant entry to append. Preconditions are checked in a fixed order
// so a request failing several of them gets a stable answer: event status,
// capacity, uniqueness, then field validation.
//
// The returned Participant has not been persisted. The store must append
// it with a conditional write that re-states the capacity and uniqueness
// checks in its filter; Register alone is not enough under concurrency.
func Register(ev *entity.Event, userID string, in RegisterInput, now time.Time) (entity.Participant, error) {
	if ev == nil {
		return entity.Participant{}, ErrNotFound
	}
	if ev.Status != entity.StatusUpcoming {
		return entity.Participant{}, ErrRegistrationClosed
	}
	if ev.ParticipantCount() >= ev.MaxParticipants {
		return entity.Participant{}, ErrEventFull
	}
	if ev.FindParticipant(userID) != nil {
		return entity.Participant{}, ErrAlreadyRegistered
	}
	if err := in.Validate(); err != nil {
		return entity.Participant{}, err
	}
	return entity.Participant{
		UserID:           userID,
		RegistrationDate: now,
		BikeInfo:         in.BikeInfo,
		EmergencyContact: in.EmergencyContact,
		SpecialRequests:  in.SpecialRequests,
		PaymentStatus:    entity.PaymentPending,
	}, nil
}

// Unregister decides whether userID may leave ev at time now. The
// cancellation window is evaluated against the event date regardless of
// event status; a rider inside the window cannot leave even a cancelled
// event, which mirrors the behavior this service replaces.
func Unregister(ev *entity.Event, userID string, now time.Time) error {
	if ev == nil {
		return ErrNotFound
	}
	if ev.FindParticipant(userID) == nil {
		return ErrNotRegistered
	}
	if ev.Date.Sub(now) < CancellationWindow {
		return ErrCancellationWindowClosed
	}
	return nil
}

// BikePatch, ContactPatch and ParticipantPatch describe a partial update
// to a registration. Pointer fields distinguish "set to this value"
// (including the empty string) from "leave unchanged".
type BikePatch struct {
	Make  *string
	Model *string
	Year  *int
	Color *string
}

type ContactPatch struct {
	Name         *string
	Phone        *string
	Relationship *string
}

type ParticipantPatch struct {
	BikeInfo         *BikePatch
	EmergencyContact *ContactPatch
	SpecialRequests  *string
}

// ApplyParticipantPatch merges patch into userID's registration on ev and
// returns the updated entry. Sub-objects merge shallowly; SpecialRequests
// is replaced outright when present in the patch. No capacity or timing
// checks apply to updates.
func ApplyParticipantPatch(ev *entity.Event, userID string, patch ParticipantPatch) (*entity.Participant, error) {
	if ev == nil {
		return nil, ErrNotFound
	}
	p := ev.FindParticipant(userID)
	if p == nil {
		return nil, ErrNotRegistered
	}
	if b := patch.BikeInfo; b != nil {
		if b.Make != nil {
			p.BikeInfo.Make = *b.Make
		}
		if b.Model != nil {
			p.BikeInfo.Model = *b.Model
		}
		if b.Year != nil {
			p.BikeInfo.Year = *b.Year
		}
		if b.Color != nil {
			p.BikeInfo.Color = *b.Color
		}
	}
	if c := patch.EmergencyContact; c != nil {
		if c.Name != nil {
			p.EmergencyContact.Name = *c.Name
		}
		if c.Phone != nil {
			p.EmergencyContact.Phone = *c.Phone
		}
		if c.Relationship != nil {
			p.EmergencyContact.Relationship = *c.Relationship
		}
	}
	if patch.SpecialRequests != nil {
		p.SpecialRequests = *patch.SpecialRequests
	}
	return p, nil
}

// Summary is the organizer's view of an event's registrations.
type Summary struct {
	EventTitle        string               `json:"event_title"`
	TotalParticipants int                  `json:"total_participants"`
	MaxParticipants   int                  `json:"max_participants"`
	Participants      []entity.Participant `json:"participants"`
}

// SummaryForOrganizer returns the participant roster, allowed only for the
// event's organizer or an admin. Everyone else gets ErrForbidden and no
// participant data.
func SummaryForOrganizer(ev *entity.Event, requesterID, requesterRole string) (Summary, error) {
	if ev == nil {
		return Summary{}, ErrNotFound
	}
	if !ev.IsOrganizedBy(requesterID) && requesterRole != entity.RoleAdmin {
		return Summary{}, ErrForbidden
	}
	return Summary{
		EventTitle:        ev.Title,
		TotalParticipants: ev.ParticipantCount(),
		MaxParticipants:   ev.MaxParticipants,
		Participants:      ev.Participants,
	}, nil
}

// CanManageEvent reports whether the requester may mutate the event
// itself (update, delete, lifecycle changes).
func CanManageEvent(ev *entity.Event, requesterID, requesterRole string) bool {
	return ev != nil && (ev.IsOrganizedBy(requesterID) || requesterRole == entity.RoleAdmin)
}
