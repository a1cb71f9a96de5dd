package task

import (
	"context"
	"sort"

	"go-propflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskRepository is the task store. Listings are ordered by stage order, then
// task order; subtasks come back sorted by their own order index.
type TaskRepository interface {
	BulkCreate(ctx context.Context, tasks []Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error)
	ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]Task, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset bson.M) error
	DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) error
}

type TaskRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTaskRepository(mongodb *database.MongodbDB) TaskRepository {
	return &TaskRepositoryImpl{
		Collection: mongodb.DB.Collection("tasks"),
	}
}

func (r *TaskRepositoryImpl) BulkCreate(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(tasks))
	for i := range tasks {
		docs = append(docs, tasks[i])
	}
	_, err := r.Collection.InsertMany(ctx, docs)
	return err
}

func (r *TaskRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	var t Task
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	sortSubtasks(&t)
	return &t, nil
}

func (r *TaskRepositoryImpl) ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]Task, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "stage_order_index", Value: 1},
		{Key: "order_index", Value: 1},
	})

	cursor, err := r.Collection.Find(ctx, bson.M{"proc_instance_id": instanceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	for i := range tasks {
		sortSubtasks(&tasks[i])
	}
	return tasks, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset bson.M) error {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *TaskRepositoryImpl) DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"proc_instance_id": instanceID})
	return err
}

func sortSubtasks(t *Task) {
	sort.SliceStable(t.Subtasks, func(i, j int) bool {
		return t.Subtasks[i].OrderIndex < t.Subtasks[j].OrderIndex
	})
}
