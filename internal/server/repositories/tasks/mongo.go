package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the mongodb collection holding task documents.
const CollectionName = "tasks"

type taskDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Content   string        `bson:"content"`
	User      bson.ObjectID `bson:"user"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type MongoRepository struct {
	c   *mongo.Collection
	now func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{c: db.Collection(CollectionName), now: time.Now}
}

// EnsureIndexes creates the owner index used by ListByUser.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	owner, err := bson.ObjectIDFromHex(task.UserID)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	doc := taskDoc{
		ID:        bson.NewObjectID(),
		Content:   task.Content,
		User:      owner,
		CreatedAt: r.now().UTC(),
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	task.ID = doc.ID.Hex()
	task.CreatedAt = doc.CreatedAt
	return task, nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	list := []models.Task{}
	owner, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return list, nil
	}

	// ObjectIDs grow with insertion time.
	cur, err := r.c.Find(ctx, bson.M{"user": owner}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, models.Task{
			ID:        doc.ID.Hex(),
			Content:   doc.Content,
			UserID:    doc.User.Hex(),
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	owner, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}
	res, err := r.c.DeleteMany(ctx, bson.M{"user": owner})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.DeletedCount, nil
}
