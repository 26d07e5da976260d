package tasks

import (
	"context"
	"os"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("GATEKEEPER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GATEKEEPER_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("gatekeeper_test_" + bson.NewObjectID().Hex())
	defer db.Drop(ctx)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	owner := bson.NewObjectID().Hex()
	for _, c := range []string{"first", "second"} {
		_, err := repo.Create(ctx, &models.Task{Content: c, UserID: owner})
		require.NoError(t, err)
	}

	list, err := repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, owner, list[0].UserID)

	n, err := repo.DeleteByUser(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
