package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoRepositoryManager vends mongodb-backed repositories. Units of work run
// without a transaction; uniqueness is enforced by indexes.
type MongoRepositoryManager struct {
	client *mongo.Client
	users  *users.MongoRepository
	tasks  *tasks.MongoRepository
}

var mongoConnect = func(opts ...*options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(opts...)
}

func NewMongoRepositoryManager(ctx context.Context, uri, database string) (*MongoRepositoryManager, error) {
	client, err := mongoConnect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	db := client.Database(database)
	return &MongoRepositoryManager{
		client: client,
		users:  users.NewMongoRepository(db),
		tasks:  tasks.NewMongoRepository(db),
	}, nil
}

func (m *MongoRepositoryManager) Users() users.Repository { return m.users }
func (m *MongoRepositoryManager) Tasks() tasks.Repository { return m.tasks }

func (m *MongoRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return fn(ctx, Repositories{Users: m.users, Tasks: m.tasks})
}

func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return m.tasks.EnsureIndexes(ctx)
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
