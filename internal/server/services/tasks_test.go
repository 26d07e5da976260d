package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks_CreateAndList(t *testing.T) {
	f := newFixture(t)
	s := f.registered(t, "alice", "pw1", "a@x.com")
	ctx := context.Background()

	list, err := f.tasks.List(ctx, s.UserID, s.UserID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	first, err := f.tasks.Create(ctx, s.UserID, s.UserID, "buy milk")
	require.NoError(t, err)
	second, err := f.tasks.Create(ctx, s.UserID, s.UserID, "walk dog")
	require.NoError(t, err)

	list, err = f.tasks.List(ctx, s.UserID, s.UserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, "buy milk", list[0].Content)
	assert.Equal(t, s.UserID, list[1].UserID)
}

func TestTasks_Forbidden(t *testing.T) {
	f := newFixture(t)
	alice := f.registered(t, "alice", "pw1", "a@x.com")
	bob := f.registered(t, "bob", "pw2", "b@x.com")
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, bob.UserID, alice.UserID, "sneaky")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.tasks.List(ctx, bob.UserID, alice.UserID)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestTasks_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, "ghost", "ghost", "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.tasks.List(ctx, "ghost", "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
