package entity

import (
	"time"
)

// Roles a user can hold. Organizers have elevated rights over their own
// events only; admins over all events.
const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
	RoleAdmin       = "admin"
)

// Riding experience levels for the rider profile.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
	ExperienceExpert       = "expert"
)

// BikeProfile describes the rider's usual bike. A rider still submits
// per-event bike info when registering, since people bring different bikes
// to different runs.
type BikeProfile struct {
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Year          int      `json:"year"`
	Color         string   `json:"color,omitempty"`
	Modifications []string `json:"modifications,omitempty"`
}

// EmergencyContact is who gets called when something goes wrong on the road.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email,omitempty"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

type Preferences struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	MarketingEmails    bool `json:"marketing_emails"`
}

// RiderProfile is the public-facing part of a user.
type RiderProfile struct {
	AvatarURL        string   `json:"avatar_url,omitempty"`
	Bio              string   `json:"bio,omitempty"`
	RidingExperience string   `json:"riding_experience,omitempty"`
	YearsRiding      int      `json:"years_riding,omitempty"`
	FavoriteRoutes   []string `json:"favorite_routes,omitempty"`
}

// Statistics are advisory counters, not invariants. They are bumped
// best-effort after successful operations and never drive authorization
// or registration decisions.
type Statistics struct {
	EventsParticipated int     `json:"events_participated"`
	EventsWon          int     `json:"events_won"`
	TotalMilesRidden   float64 `json:"total_miles_ridden"`
}

// User is the aggregate root for the identity domain. Password holds a
// bcrypt hash. Users are deactivated, never deleted.
type User struct {
	ID               string
	Name             string
	Email            string
	Password         string
	Phone            string
	Role             string
	BikeProfile      BikeProfile
	EmergencyContact EmergencyContact
	Address          Address
	Preferences      Preferences
	Profile          RiderProfile
	Statistics       Statistics
	IsActive         bool
	EmailVerified    bool
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanOrganize reports whether the user may create events.
func (u *User) CanOrganize() bool {
	return u.Role == RoleOrganizer || u.Role == RoleAdmin
}

// PublicProfile strips credentials and contact details for display to
// other riders.
func (u *User) PublicProfile() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"profile":    u.Profile,
		"statistics": u.Statistics,
		"created_at": u.CreatedAt,
	}
}

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	switch s {
	case RoleParticipant, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}
