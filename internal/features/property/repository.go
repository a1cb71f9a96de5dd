package property

import (
	"context"
	"time"

	"go-propflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PropertyRepository interface {
	Create(ctx context.Context, p *Property) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Property, error)
	List(ctx context.Context) ([]Property, error)
	// TransitionStatus flips the status only when it still matches from.
	// Returns true when a row was updated.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to PropertyStatus) (bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status PropertyStatus) error
}

type PropertyRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPropertyRepository(mongodb *database.MongodbDB) PropertyRepository {
	return &PropertyRepositoryImpl{
		Collection: mongodb.DB.Collection("properties"),
	}
}

func (r *PropertyRepositoryImpl) Create(ctx context.Context, p *Property) error {
	_, err := r.Collection.InsertOne(ctx, p)
	return err
}

func (r *PropertyRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Property, error) {
	var p Property
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepositoryImpl) List(ctx context.Context) ([]Property, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var properties []Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *PropertyRepositoryImpl) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to PropertyStatus) (bool, error) {
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *PropertyRepositoryImpl) UpdateStatus(ctx context.Context, id primitive.ObjectID, status PropertyStatus) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	return err
}
