package entity

import (
	"testing"

	"github.com/google/uuid"
)

func TestEventDerivedAttributes(t *testing.T) {
	ev := &Event{Status: StatusUpcoming, MaxParticipants: 3}
	if !ev.IsRegistrationOpen() {
		t.Error("empty upcoming event should be open")
	}
	if ev.SpotsRemaining() != 3 {
		t.Errorf("spots = %d, want 3", ev.SpotsRemaining())
	}

	for i := 0; i < 3; i++ {
		ev.Participants = append(ev.Participants, Participant{UserID: uuid.NewString()})
	}
	if ev.ParticipantCount() != 3 || ev.SpotsRemaining() != 0 {
		t.Errorf("count = %d spots = %d", ev.ParticipantCount(), ev.SpotsRemaining())
	}
	if ev.IsRegistrationOpen() {
		t.Error("full event should not be open")
	}

	ev.MaxParticipants = 5
	ev.Status = StatusCancelled
	if ev.IsRegistrationOpen() {
		t.Error("cancelled event should not be open even with spots left")
	}
}

func TestFindParticipant(t *testing.T) {
	uid := uuid.NewString()
	ev := &Event{Participants: []Participant{{UserID: uuid.NewString()}, {UserID: uid}}}
	p := ev.FindParticipant(uid)
	if p == nil || p.UserID != uid {
		t.Fatalf("FindParticipant() = %+v", p)
	}
	if ev.FindParticipant(uuid.NewString()) != nil {
		t.Error("unknown user should not be found")
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]string]bool{
		{StatusUpcoming, StatusActive}:    true,
		{StatusUpcoming, StatusCancelled}: true,
		{StatusActive, StatusCompleted}:   true,
	}
	statuses := []string{StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]string{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}
