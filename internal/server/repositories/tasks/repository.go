// Package tasks stores user-owned tasks. A task keeps only its owner
// reference; a user's list is read back by owner in creation order.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts task and fills its ID and CreatedAt. A missing owner
	// yields common.ErrorNotFound where the store can tell.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
