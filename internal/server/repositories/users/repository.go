// Package users stores user accounts. Implementations exist for postgres,
// mongodb and process memory; all report common.ErrorNotFound and
// common.ErrorAlreadyExists.
package users

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A taken username or
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Claim sets username and password on an email-only record. It returns
	// common.ErrorNotFound when the record is missing or already has a
	// username.
	Claim(ctx context.Context, id, username, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}
