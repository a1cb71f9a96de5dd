package process

import (
	"context"
	"time"

	"go-propflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProcessRepository is the instance store. Transitions go through
// TransitionStatus, which only matches documents still in one of the expected
// source statuses, so two racing callers cannot both win.
type ProcessRepository interface {
	Create(ctx context.Context, p *ProcessInstance) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*ProcessInstance, error)
	List(ctx context.Context, filter bson.M, page, limit int64) ([]ProcessInstance, int64, error)
	// TransitionStatus atomically moves the instance into the status carried in
	// set, provided it is not deleted and currently sits in one of from.
	// Returns the updated document, or nil when no document matched.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from []ProcessStatus, set bson.M, unset bson.M) (*ProcessInstance, error)
	SetPercent(ctx context.Context, id primitive.ObjectID, percent int) error
	// SoftDelete stamps deletion provenance on a live instance. Returns false
	// when the instance was already deleted or does not exist.
	SoftDelete(ctx context.Context, id primitive.ObjectID, deletedBy primitive.ObjectID, at time.Time) (bool, error)
}

type ProcessRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewProcessRepository(mongodb *database.MongodbDB) ProcessRepository {
	return &ProcessRepositoryImpl{
		Collection: mongodb.DB.Collection("process_instances"),
	}
}

func (r *ProcessRepositoryImpl) Create(ctx context.Context, p *ProcessInstance) error {
	_, err := r.Collection.InsertOne(ctx, p)
	return err
}

func (r *ProcessRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*ProcessInstance, error) {
	var p ProcessInstance
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProcessRepositoryImpl) List(ctx context.Context, filter bson.M, page, limit int64) ([]ProcessInstance, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	filter["deleted_at"] = nil

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var instances []ProcessInstance
	if err = cursor.All(ctx, &instances); err != nil {
		return nil, 0, err
	}
	return instances, total, nil
}

func (r *ProcessRepositoryImpl) TransitionStatus(ctx context.Context, id primitive.ObjectID, from []ProcessStatus, set bson.M, unset bson.M) (*ProcessInstance, error) {
	filter := bson.M{
		"_id":            id,
		"current_status": bson.M{"$in": from},
		"deleted_at":     nil,
	}
	set["updated_at"] = time.Now()

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated ProcessInstance
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *ProcessRepositoryImpl) SetPercent(ctx context.Context, id primitive.ObjectID, percent int) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": nil},
		bson.M{"$set": bson.M{"percent_complete": percent, "updated_at": time.Now()}},
	)
	return err
}

func (r *ProcessRepositoryImpl) SoftDelete(ctx context.Context, id primitive.ObjectID, deletedBy primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"deleted_at": at,
			"deleted_by": deletedBy,
			"updated_at": at,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
