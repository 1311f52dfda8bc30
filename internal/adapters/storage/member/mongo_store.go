package member

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mms/internal/adapters/storage"
	domain "mms/internal/domain/member"
)

// CollectionName is the members collection in the document store.
const CollectionName = "members"

// MongoStore implements Store against a Mongo collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a new MemberStore backed by db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(CollectionName)}
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *MongoStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	var entity domain.Member
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&entity)
	if err == mongo.ErrNoDocuments {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return entity, err
}

// FindByCampusID retrieves the Member holding the given natural key.
// PRE: campusID is non-empty
// POST: found is false (with a nil error) when no member holds the key
func (s *MongoStore) FindByCampusID(ctx context.Context, campusID string) (domain.Member, bool, error) {
	var entity domain.Member
	err := s.col.FindOne(ctx, bson.M{"campusId": campusID}).Decode(&entity)
	if err == mongo.ErrNoDocuments {
		return domain.Member{}, false, nil
	}
	if err != nil {
		return domain.Member{}, false, err
	}
	return entity, true, nil
}

// List retrieves every Member ordered by full name.
func (s *MongoStore) List(ctx context.Context) ([]domain.Member, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []domain.Member
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Save persists a Member, generating an id when the entity has none.
// PRE: entity has been validated
// POST: Entity is persisted and its id returned
func (s *MongoStore) Save(ctx context.Context, entity domain.Member) (string, error) {
	now := time.Now()
	entity.UpdatedAt = now
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

// Update applies a partial field update to one member document.
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

// UpsertByCampusID merges the given wire-named fields into the member
// holding the natural key, creating the member when none exists. The write
// is one atomic call: no separate existence check precedes it, so
// concurrent importers of the same key cannot race into a duplicate.
// PRE: campusID is non-empty; fields use storage wire names
// POST: action is "added" on insert, "updated" on merge; fields absent from
//
//	the map keep their stored values
func (s *MongoStore) UpsertByCampusID(ctx context.Context, campusID string, fields map[string]any) (string, string, error) {
	if campusID == "" {
		return "", "", domain.ErrCampusIDRequired
	}
	now := time.Now()

	set := bson.M{"campusId": campusID, "updatedAt": now}
	for k, v := range fields {
		set[k] = v
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"campusId": campusID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"_id": uuid.NewString(), "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", "", err
	}
	if res.UpsertedID != nil {
		id, _ := res.UpsertedID.(string)
		return id, ActionAdded, nil
	}

	existing, _, err := s.FindByCampusID(ctx, campusID)
	if err != nil {
		return "", ActionUpdated, err
	}
	return existing.ID, ActionUpdated, nil
}

// Delete removes a Member from the store.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
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
		models = append(models, updateModel(op))
	}
	_, err := s.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

// updateModel translates one UpdateOp into a Mongo write model.
func updateModel(op storage.UpdateOp) mongo.WriteModel {
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
	return mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": op.ID}).SetUpdate(update)
}

// Subscribe opens a change stream and pushes a full-collection snapshot for
// the current state and after every subsequent change.
// PRE: the deployment supports change streams (replica set)
// POST: snapshots keep flowing until stop is called or ctx is cancelled;
//
//	stream errors are reported through onError, never panicked
func (s *MongoStore) Subscribe(ctx context.Context, onSnapshot func([]domain.Member), onError func(error)) (func(), error) {
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
