package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mms/internal/adapters/storage"
	domain "mms/internal/domain/event"
)

// CollectionName is the events collection in the document store.
const CollectionName = "events"

// MongoStore implements Store against a Mongo collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a new EventStore backed by db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(CollectionName)}
}

// GetByID retrieves an Event by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *MongoStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	var entity domain.Event
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&entity)
	if err == mongo.ErrNoDocuments {
		return domain.Event{}, fmt.Errorf("event not found: %w", err)
	}
	return entity, err
}

// List retrieves every Event, most recent date first.
func (s *MongoStore) List(ctx context.Context) ([]domain.Event, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []domain.Event
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Save persists an Event, generating an id when the entity has none.
// PRE: entity has been validated
// POST: Entity is persisted and its id returned
func (s *MongoStore) Save(ctx context.Context, entity domain.Event) (string, error) {
	now := time.Now()
	entity.UpdatedAt = now
	if entity.Attendance == nil {
		entity.Attendance = map[string]map[string]any{}
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
		entity.CreatedAt = now
		if _, err := s.col.InsertOne(ctx, entity); err != nil {
			return "", err
		}
		return entity.ID, nil
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": entity.ID}, entity, options.Replace().SetUpsert(true))
	return entity.ID, err
}

// Update applies a partial field update to one event document.
// PRE: id is non-empty, fields is non-empty
// POST: Listed fields are set; all other fields keep their stored values
func (s *MongoStore) Update(ctx context.Context, id string, fields map[string]any) error {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// Delete removes an Event from the store.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetAttendee writes one member's attendance payload on an event.
// POST: Only the attendance.<memberID> path is touched
func (s *MongoStore) SetAttendee(ctx context.Context, eventID, memberID string, data map[string]any) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{
		"$set": bson.M{
			"attendance." + memberID: data,
			"updatedAt":              time.Now(),
		},
	})
	return err
}

// RemoveAttendee deletes one member's entry from an event's attendance map.
// POST: Removing an absent member is a no-op, keeping the cascade idempotent
func (s *MongoStore) RemoveAttendee(ctx context.Context, eventID, memberID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{
		"$unset": bson.M{"attendance." + memberID: ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
	return err
}

// BatchUpdate applies up to MaxBatchOps partial updates as one atomic batch.
// PRE: len(ops) <= storage.MaxBatchOps
// POST: Either every op is applied or the call fails as a unit
func (s *MongoStore) BatchUpdate(ctx context.Context, ops []storage.UpdateOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > storage.MaxBatchOps {
		return storage.ErrBatchTooLarge
	}
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		update := bson.M{}
		set := bson.M{"updatedAt": time.Now()}
		for k, v := range op.Fields {
			set[k] = v
		}
		update["$set"] = set
		if len(op.Unset) > 0 {
			unset := bson.M{}
			for _, path := range op.Unset {
				unset[path] = ""
			}
			update["$unset"] = unset
		}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": op.ID}).SetUpdate(update))
	}
	_, err := s.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

// Subscribe opens a change stream and pushes a full-collection snapshot for
// the current state and after every subsequent change.
// PRE: the deployment supports change streams (replica set)
// POST: snapshots keep flowing until stop is called or ctx is cancelled;
//
//	stream errors are reported through onError, never panicked
func (s *MongoStore) Subscribe(ctx context.Context, onSnapshot func([]domain.Event), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.col.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	if snapshot, err := s.List(ctx); err != nil {
		onError(err)
	} else {
		onSnapshot(snapshot)
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			snapshot, err := s.List(ctx)
			if err != nil {
				onError(err)
				continue
			}
			onSnapshot(snapshot)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(err)
		}
	}()

	return cancel, nil
}
