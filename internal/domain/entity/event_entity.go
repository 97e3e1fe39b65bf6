package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event lifecycle states. Only an upcoming event admits registrations.
const (
	StatusUpcoming  = "upcoming"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment states for a registration. There is no gateway integration;
// organizers flip the flag by hand.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

type Coordinates struct {
	Lat float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

type Location struct {
	Name        string      `bson:"name" json:"name"`
	Address     string      `bson:"address" json:"address"`
	Coordinates Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Stop is one checkpoint on the run where riders draw a card.
type Stop struct {
	Number      int         `bson:"number" json:"number"`
	Name        string      `bson:"name" json:"name"`
	Address     string      `bson:"address" json:"address"`
	Coordinates Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	IsRequired  bool        `bson:"is_required" json:"is_required"`
}

type Prize struct {
	Place       int     `bson:"place" json:"place"`
	Description string  `bson:"description" json:"description"`
	Value       float64 `bson:"value,omitempty" json:"value,omitempty"`
	Sponsor     string  `bson:"sponsor,omitempty" json:"sponsor,omitempty"`
}

// Card and HandEntry record what a rider drew at a stop. The registration
// logic never reads them; they exist for scoring after the run.
type Card struct {
	Suit  string `bson:"suit" json:"suit"`
	Value string `bson:"value" json:"value"`
}

type HandEntry struct {
	Stop int  `bson:"stop" json:"stop"`
	Card Card `bson:"card" json:"card"`
}

// ParticipantBike is the bike a rider registered for a specific run.
// Make, model and year are required at registration time.
type ParticipantBike struct {
	Make  string `bson:"make" json:"make"`
	Model string `bson:"model" json:"model"`
	Year  int    `bson:"year" json:"year"`
	Color string `bson:"color,omitempty" json:"color,omitempty"`
}

// ParticipantContact is the per-event emergency contact. Name and phone
// are required at registration time.
type ParticipantContact struct {
	Name         string `bson:"name" json:"name"`
	Phone        string `bson:"phone" json:"phone"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
}

// Participant is a user's registration record embedded in an Event.
// UserID is the rider's identity-store id, unique within the event's
// participant array.
type Participant struct {
	UserID           string             `bson:"user" json:"user"`
	RegistrationDate time.Time          `bson:"registration_date" json:"registration_date"`
	BikeInfo         ParticipantBike    `bson:"bike_info" json:"bike_info"`
	EmergencyContact ParticipantContact `bson:"emergency_contact" json:"emergency_contact"`
	SpecialRequests  string             `bson:"special_requests,omitempty" json:"special_requests,omitempty"`
	PaymentStatus    string             `bson:"payment_status" json:"payment_status"`
	Hand             []HandEntry        `bson:"hand,omitempty" json:"hand,omitempty"`
	FinalScore       int                `bson:"final_score,omitempty" json:"final_score,omitempty"`
}

// Event is the aggregate root for a poker run. The whole document is the
// unit of concurrency control: every participant mutation is a sub-document
// write against one event, guarded by a conditional filter.
type Event struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Date            time.Time          `bson:"date" json:"date"`
	StartLocation   Location           `bson:"start_location" json:"start_location"`
	EndLocation     Location           `bson:"end_location" json:"end_location"`
	Stops           []Stop             `bson:"stops,omitempty" json:"stops,omitempty"`
	RegistrationFee float64            `bson:"registration_fee" json:"registration_fee"`
	MaxParticipants int                `bson:"max_participants" json:"max_participants"`
	Participants    []Participant      `bson:"participants" json:"participants"`
	Prizes          []Prize            `bson:"prizes,omitempty" json:"prizes,omitempty"`
	Status          string             `bson:"status" json:"status"`
	OrganizerID     string             `bson:"organizer" json:"organizer"`
	Rules           string             `bson:"rules,omitempty" json:"rules,omitempty"`
	Requirements    []string           `bson:"requirements,omitempty" json:"requirements,omitempty"`
	Images          []string           `bson:"images,omitempty" json:"images,omitempty"`
	WeatherForecast string             `bson:"weather_forecast,omitempty" json:"weather_forecast,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// ParticipantCount is the number of registered riders.
func (e *Event) ParticipantCount() int { return len(e.Participants) }

// SpotsRemaining is how many riders can still register.
func (e *Event) SpotsRemaining() int { return e.MaxParticipants - len(e.Participants) }

// IsRegistrationOpen reports whether a new rider could register right now.
func (e *Event) IsRegistrationOpen() bool {
	return e.Status == StatusUpcoming && len(e.Participants) < e.MaxParticipants
}

// FindParticipant returns the registration for userID, or nil.
func (e *Event) FindParticipant(userID string) *Participant {
	for i := range e.Participants {
		if e.Participants[i].UserID == userID {
			return &e.Participants[i]
		}
	}
	return nil
}

// IsOrganizedBy reports whether userID owns this event.
func (e *Event) IsOrganizedBy(userID string) bool {
	return e.OrganizerID == userID
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from one
// status to another: upcoming -> active -> completed, or
// upcoming -> cancelled.
func CanTransition(from, to string) bool {
	switch from {
	case StatusUpcoming:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusCompleted
	}
	return false
}
