package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
)

func validInput() RegisterInput {
	return RegisterInput{
		BikeInfo:         entity.ParticipantBike{Make: "Harley-Davidson", Model: "Road King", Year: 2019},
		EmergencyContact: entity.ParticipantContact{Name: "Pat Doe", Phone: "+13365550142"},
	}
}

func upcomingEvent(max int) *entity.Event {
	return &entity.Event{
		ID:              primitive.NewObjectID(),
		Title:           "Fall Foliage Run",
		Date:            time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Status:          entity.StatusUpcoming,
		MaxParticipants: max,
		OrganizerID:     uuid.NewString(),
	}
}

func mustRegister(t *testing.T, ev *entity.Event, uid string, now time.Time) entity.Participant {
	t.Helper()
	p, err := Register(ev, uid, validInput(), now)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	ev.Participants = append(ev.Participants, p)
	return p
}

func TestRegister(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	uid := uuid.NewString()

	t.Run("success fills defaults", func(t *testing.T) {
		ev := upcomingEvent(10)
		p, err := Register(ev, uid, validInput(), now)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if p.PaymentStatus != entity.PaymentPending {
			t.Errorf("payment status = %q, want %q", p.PaymentStatus, entity.PaymentPending)
		}
		if !p.RegistrationDate.Equal(now) {
			t.Errorf("registration date = %v, want %v", p.RegistrationDate, now)
		}
		if p.UserID != uid {
			t.Errorf("user id = %v, want %v", p.UserID, uid)
		}
	})

	t.Run("nil event", func(t *testing.T) {
		if _, err := Register(nil, uid, validInput(), now); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("closed regardless of capacity", func(t *testing.T) {
		for _, status := range []string{entity.StatusActive, entity.StatusCompleted, entity.StatusCancelled} {
			ev := upcomingEvent(10)
			ev.Status = status
			if _, err := Register(ev, uid, validInput(), now); !errors.Is(err, ErrRegistrationClosed) {
				t.Errorf("status %s: error = %v, want ErrRegistrationClosed", status, err)
			}
		}
	})

	t.Run("full", func(t *testing.T) {
		ev := upcomingEvent(1)
		mustRegister(t, ev, uuid.NewString(), now)
		if _, err := Register(ev, uid, validInput(), now); !errors.Is(err, ErrEventFull) {
			t.Errorf("error = %v, want ErrEventFull", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		ev := upcomingEvent(10)
		mustRegister(t, ev, uid, now)
		if _, err := Register(ev, uid, validInput(), now); !errors.Is(err, ErrAlreadyRegistered) {
			t.Errorf("error = %v, want ErrAlreadyRegistered", err)
		}
	})

	t.Run("closed wins over full and duplicate", func(t *testing.T) {
		// Precondition order is fixed: a cancelled, full event the user is
		// already on still reports RegistrationClosed.
		ev := upcomingEvent(1)
		mustRegister(t, ev, uid, now)
		ev.Status = entity.StatusCancelled
		if _, err := Register(ev, uid, validInput(), now); !errors.Is(err, ErrRegistrationClosed) {
			t.Errorf("error = %v, want ErrRegistrationClosed", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		in := validInput()
		in.BikeInfo.Model = ""
		in.EmergencyContact.Phone = ""
		_, err := Register(upcomingEvent(10), uid, in, now)
		fe, ok := AsFieldErrors(err)
		if !ok {
			t.Fatalf("error = %v, want FieldErrors", err)
		}
		if _, present := fe["bike_info.model"]; !present {
			t.Errorf("missing bike_info.model in %v", fe)
		}
		if _, present := fe["emergency_contact.phone"]; !present {
			t.Errorf("missing emergency_contact.phone in %v", fe)
		}
	})

	t.Run("rejection leaves event unchanged", func(t *testing.T) {
		ev := upcomingEvent(1)
		mustRegister(t, ev, uid, now)
		before := len(ev.Participants)
		_, _ = Register(ev, uuid.NewString(), validInput(), now)
		if len(ev.Participants) != before {
			t.Errorf("participants mutated on rejection: %d -> %d", before, len(ev.Participants))
		}
	})
}

func TestUnregisterWindow(t *testing.T) {
	uid := uuid.NewString()
	eventDate := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		until   time.Duration
		wantErr error
	}{
		{"well before", 30 * 24 * time.Hour, nil},
		{"just over seven days", 7*24*time.Hour + time.Minute, nil},
		{"exactly seven days", 7 * 24 * time.Hour, nil},
		{"just under seven days", 7*24*time.Hour - time.Minute, ErrCancellationWindowClosed},
		{"day before", 24 * time.Hour, ErrCancellationWindowClosed},
		{"after the event", -24 * time.Hour, ErrCancellationWindowClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := upcomingEvent(10)
			ev.Date = eventDate
			mustRegister(t, ev, uid, eventDate.Add(-60*24*time.Hour))
			err := Unregister(ev, uid, eventDate.Add(-tc.until))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Unregister() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	t.Run("not registered", func(t *testing.T) {
		ev := upcomingEvent(10)
		if err := Unregister(ev, uid, eventDate.Add(-30*24*time.Hour)); !errors.Is(err, ErrNotRegistered) {
			t.Errorf("error = %v, want ErrNotRegistered", err)
		}
	})

	t.Run("window applies even when cancelled", func(t *testing.T) {
		ev := upcomingEvent(10)
		ev.Date = eventDate
		mustRegister(t, ev, uid, eventDate.Add(-60*24*time.Hour))
		ev.Status = entity.StatusCancelled
		err := Unregister(ev, uid, eventDate.Add(-24*time.Hour))
		if !errors.Is(err, ErrCancellationWindowClosed) {
			t.Errorf("error = %v, want ErrCancellationWindowClosed", err)
		}
	})
}

func strptr(s string) *string { return &s }

func TestApplyParticipantPatch(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	uid := uuid.NewString()

	newEvent := func() *entity.Event {
		ev := upcomingEvent(10)
		mustRegister(t, ev, uid, now)
		ev.Participants[0].SpecialRequests = "vegetarian lunch"
		return ev
	}

	t.Run("shallow merge keeps unpatched fields", func(t *testing.T) {
		ev := newEvent()
		year := 2022
		p, err := ApplyParticipantPatch(ev, uid, ParticipantPatch{
			BikeInfo:         &BikePatch{Model: strptr("Street Glide"), Year: &year},
			EmergencyContact: &ContactPatch{Phone: strptr("+13365550199")},
		})
		if err != nil {
			t.Fatalf("ApplyParticipantPatch() error = %v", err)
		}
		if p.BikeInfo.Make != "Harley-Davidson" {
			t.Errorf("make = %q, want untouched", p.BikeInfo.Make)
		}
		if p.BikeInfo.Model != "Street Glide" || p.BikeInfo.Year != 2022 {
			t.Errorf("patched bike = %+v", p.BikeInfo)
		}
		if p.EmergencyContact.Name != "Pat Doe" || p.EmergencyContact.Phone != "+13365550199" {
			t.Errorf("patched contact = %+v", p.EmergencyContact)
		}
		if p.SpecialRequests != "vegetarian lunch" {
			t.Errorf("special requests = %q, want unchanged", p.SpecialRequests)
		}
	})

	t.Run("empty special requests clears, omitted leaves alone", func(t *testing.T) {
		ev := newEvent()
		if _, err := ApplyParticipantPatch(ev, uid, ParticipantPatch{}); err != nil {
			t.Fatalf("ApplyParticipantPatch() error = %v", err)
		}
		if got := ev.Participants[0].SpecialRequests; got != "vegetarian lunch" {
			t.Errorf("omitted patch changed special requests to %q", got)
		}
		p, err := ApplyParticipantPatch(ev, uid, ParticipantPatch{SpecialRequests: strptr("")})
		if err != nil {
			t.Fatalf("ApplyParticipantPatch() error = %v", err)
		}
		if p.SpecialRequests != "" {
			t.Errorf("special requests = %q, want cleared", p.SpecialRequests)
		}
	})

	t.Run("not registered", func(t *testing.T) {
		ev := newEvent()
		if _, err := ApplyParticipantPatch(ev, uuid.NewString(), ParticipantPatch{}); !errors.Is(err, ErrNotRegistered) {
			t.Errorf("error = %v, want ErrNotRegistered", err)
		}
	})
}

func TestSummaryForOrganizer(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ev := upcomingEvent(25)
	mustRegister(t, ev, uuid.NewString(), now)
	mustRegister(t, ev, uuid.NewString(), now)

	t.Run("organizer", func(t *testing.T) {
		s, err := SummaryForOrganizer(ev, ev.OrganizerID, entity.RoleOrganizer)
		if err != nil {
			t.Fatalf("SummaryForOrganizer() error = %v", err)
		}
		if s.EventTitle != ev.Title || s.TotalParticipants != 2 || s.MaxParticipants != 25 {
			t.Errorf("summary = %+v", s)
		}
		if len(s.Participants) != 2 {
			t.Errorf("participants = %d, want 2", len(s.Participants))
		}
	})

	t.Run("admin who is not the organizer", func(t *testing.T) {
		if _, err := SummaryForOrganizer(ev, uuid.NewString(), entity.RoleAdmin); err != nil {
			t.Errorf("SummaryForOrganizer() error = %v, want nil", err)
		}
	})

	t.Run("other participant is forbidden and gets no data", func(t *testing.T) {
		s, err := SummaryForOrganizer(ev, ev.Participants[0].UserID, entity.RoleParticipant)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
		if s.Participants != nil || s.EventTitle != "" {
			t.Errorf("forbidden caller received data: %+v", s)
		}
	})
}

func TestCanManageEvent(t *testing.T) {
	ev := upcomingEvent(10)
	if !CanManageEvent(ev, ev.OrganizerID, entity.RoleOrganizer) {
		t.Error("organizer should manage own event")
	}
	if !CanManageEvent(ev, uuid.NewString(), entity.RoleAdmin) {
		t.Error("admin should manage any event")
	}
	if CanManageEvent(ev, uuid.NewString(), entity.RoleOrganizer) {
		t.Error("other organizer should not manage this event")
	}
	if CanManageEvent(nil, ev.OrganizerID, entity.RoleAdmin) {
		t.Error("nil event should not be manageable")
	}
}
