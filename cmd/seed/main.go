package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/infrastructure/mongodb"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
)

// Seeds a demo admin and organizer in Postgres and one upcoming run in
// MongoDB, so a fresh stack has something to click through.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	adminID := seedUser(db, "admin@pokerrun.local", "Road Captain", entity.RoleAdmin)
	organizerID := seedUser(db, "organizer@pokerrun.local", "Riley Chapter", entity.RoleOrganizer)
	fmt.Printf("seeded users: admin=%s organizer=%s (password: password123)\n", adminID, organizerID)

	ctx := context.Background()
	client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoConnectTimeout)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	mdb := client.Database(cfg.MongoDatabase)
	if err := mongodb.EnsureEventIndexes(ctx, mdb); err != nil {
		log.Fatalf("failed to create event indexes: %v", err)
	}

	events := mongodb.NewEventRepository(mdb)
	ev := &entity.Event{
		Title:       "Autumn Charity Poker Run",
		Description: "Five stops through the foothills, best hand takes the pot for the children's hospital.",
		Date:        time.Now().AddDate(0, 1, 0).Truncate(time.Hour),
		StartLocation: entity.Location{
			Name:    "Iron Horse Saloon",
			Address: "1204 Ridgeway Ave, Asheville, NC",
		},
		EndLocation: entity.Location{
			Name:    "Summit Roadhouse",
			Address: "88 Overlook Dr, Asheville, NC",
		},
		Stops: []entity.Stop{
			{Number: 1, Name: "Riverside Fuel", Address: "310 River Rd", IsRequired: true},
			{Number: 2, Name: "The Bent Spoke", Address: "77 Mill St", IsRequired: true},
			{Number: 3, Name: "Lookout Diner", Address: "5 Summit Pass", IsRequired: false},
		},
		RegistrationFee: 25,
		MaxParticipants: 50,
		Prizes: []entity.Prize{
			{Place: 1, Description: "Best hand", Value: 500},
			{Place: 2, Description: "Worst hand", Value: 100},
		},
		Status:       entity.StatusUpcoming,
		OrganizerID:  organizerID,
		Rules:        "Draw one card per stop. Hands scored at the final stop.",
		Requirements: []string{"Valid motorcycle license", "DOT-approved helmet"},
	}
	if err := events.Create(ctx, ev); err != nil {
		log.Fatalf("failed to seed event: %v", err)
	}
	fmt.Printf("seeded event: id=%s title=%q\n", ev.ID.Hex(), ev.Title)
}

func seedUser(db *sql.DB, email, name, role string) string {
	hash, err := helpers.HashPassword("password123")
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	var id string
	err = db.QueryRow(`
		INSERT INTO users (name, email, password_hash, role, email_verified)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING id
	`, name, email, hash, role).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}
	return id
}
