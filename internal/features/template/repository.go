package template

import (
	"context"

	"go-propflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository interface {
	FindByID(ctx context.Context, id string) (*Template, error)
	ListActive(ctx context.Context) ([]Template, error)
	Upsert(ctx context.Context, tpl *Template) error
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("process_templates"),
	}
}

func (r *TemplateRepositoryImpl) FindByID(ctx context.Context, id string) (*Template, error) {
	var tpl Template
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

func (r *TemplateRepositoryImpl) Upsert(ctx context.Context, tpl *Template) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": tpl.ID}, tpl, opts)
	return err
}

func (r *TemplateRepositoryImpl) ListActive(ctx context.Context) ([]Template, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []Template
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
