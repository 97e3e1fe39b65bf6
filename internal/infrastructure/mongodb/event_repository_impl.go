package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
)

const eventsCollection = "events"

const queryTimeout = 5 * time.Second

// EventRepository persists Event aggregates as single documents. The
// participant mutations are conditional writes: the filter carries the
// registration invariants, so a racing writer makes the filter miss
// instead of breaking capacity or uniqueness.
type EventRepository struct {
	c *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{c: db.Collection(eventsCollection)}
}

func (r *EventRepository) Create(ctx context.Context, ev *entity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.Participants == nil {
		ev.Participants = []entity.Participant{}
	}
	_, err := r.c.InsertOne(ctx, ev)
	return err
}

func (r *EventRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ev entity.Event
	err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepository) List(ctx context.Context, f repository.EventFilter) ([]entity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.Day.IsZero() {
		start := time.Date(f.Day.Year(), f.Day.Month(), f.Day.Day(), 0, 0, 0, 0, time.UTC)
		filter["date"] = bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)}
	}
	return r.find(ctx, filter)
}

func (r *EventRepository) ListByParticipant(ctx context.Context, userID string) ([]entity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"participants.user": userID})
}

func (r *EventRepository) find(ctx context.Context, filter bson.M) ([]entity.Event, error) {
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []entity.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) Update(ctx context.Context, id primitive.ObjectID, upd repository.EventUpdate) (*entity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "title", upd.Title)
	setIf(set, "description", upd.Description)
	setIf(set, "date", upd.Date)
	setIf(set, "start_location", upd.StartLocation)
	setIf(set, "end_location", upd.EndLocation)
	setIf(set, "stops", upd.Stops)
	setIf(set, "registration_fee", upd.RegistrationFee)
	setIf(set, "max_participants", upd.MaxParticipants)
	setIf(set, "prizes", upd.Prizes)
	setIf(set, "rules", upd.Rules)
	setIf(set, "requirements", upd.Requirements)
	setIf(set, "images", upd.Images)

	var ev entity.Event
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// setIf adds key to set when the pointer is non-nil. ptr must be a
// pointer; the pointee is stored.
func setIf[T any](set bson.M, key string, ptr *T) {
	if ptr != nil {
		set[key] = *ptr
	}
}

// UpdateStatus moves the lifecycle from one state to another. The filter
// includes the expected current status so concurrent transitions cannot
// leapfrog each other.
func (r *EventRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrConditionalWriteFailed
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrEventNotFound
	}
	return nil
}

// AddParticipant appends p in one conditional write. The filter restates
// every registration invariant: the event is still upcoming, the rider is
// not already on the list, and the list is below capacity. Two concurrent
// registrations for the last slot therefore cannot both match; the loser
// sees ErrConditionalWriteFailed and the caller re-reads to classify.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID primitive.ObjectID, p entity.Participant, maxParticipants int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"_id":               eventID,
		"status":            entity.StatusUpcoming,
		"participants.user": bson.M{"$ne": p.UserID},
		"$expr":             bson.M{"$lt": bson.A{bson.M{"$size": "$participants"}, maxParticipants}},
	}
	update := bson.M{
		"$push": bson.M{"participants": p},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrConditionalWriteFailed
	}
	return nil
}

func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID primitive.ObjectID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": eventID, "participants.user": userID},
		bson.M{
			"$pull": bson.M{"participants": bson.M{"user": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrConditionalWriteFailed
	}
	return nil
}

func (r *EventRepository) PatchParticipant(ctx context.Context, eventID primitive.ObjectID, userID string, patch registration.ParticipantPatch) (*entity.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Positional $ targets the array element matched by the filter, so the
	// merge applies to this rider's entry only.
	set := bson.M{"updated_at": time.Now().UTC()}
	if b := patch.BikeInfo; b != nil {
		setIf(set, "participants.$.bike_info.make", b.Make)
		setIf(set, "participants.$.bike_info.model", b.Model)
		setIf(set, "participants.$.bike_info.year", b.Year)
		setIf(set, "participants.$.bike_info.color", b.Color)
	}
	if c := patch.EmergencyContact; c != nil {
		setIf(set, "participants.$.emergency_contact.name", c.Name)
		setIf(set, "participants.$.emergency_contact.phone", c.Phone)
		setIf(set, "participants.$.emergency_contact.relationship", c.Relationship)
	}
	setIf(set, "participants.$.special_requests", patch.SpecialRequests)

	var ev entity.Event
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{"_id": eventID, "participants.user": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrConditionalWriteFailed
	}
	if err != nil {
		return nil, err
	}
	p := ev.FindParticipant(userID)
	if p == nil {
		return nil, repository.ErrConditionalWriteFailed
	}
	return p, nil
}

var _ repository.EventRepository = (*EventRepository)(nil)
