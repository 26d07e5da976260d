package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())

	u, err := repo.Create(ctx, &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "h1"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = repo.Create(ctx, &models.User{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	_, err = repo.Create(ctx, &models.User{Username: "bob", Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2"))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), common.ErrorNotFound)
}

func TestMemoryRepository_Claim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())

	emailOnly, err := repo.Create(ctx, &models.User{Email: "c@x.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{Username: "taken", Email: "t@x.com"})
	require.NoError(t, err)

	_, err = repo.GetByUsername(ctx, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, repo.Claim(ctx, emailOnly.ID, "taken", "h"), common.ErrorAlreadyExists)
	require.NoError(t, repo.Claim(ctx, emailOnly.ID, "carol", "h"))
	assert.ErrorIs(t, repo.Claim(ctx, emailOnly.ID, "carol2", "h"), common.ErrorNotFound)

	got, err := repo.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, emailOnly.ID, got.ID)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMemoryRepository_SharedStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u, err := NewMemoryRepository(store).Create(ctx, &models.User{Username: "d", Email: "d@x.com"})
	require.NoError(t, err)

	_, err = NewMemoryRepository(store).GetByID(ctx, u.ID)
	require.NoError(t, err)
}
