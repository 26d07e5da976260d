package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// Admin holds the operator actions exposed by the admin command.
type Admin struct {
	repos  repomanager.RepositoryManager
	hasher *cryptox.Hasher
	logger logging.Logger
}

func NewAdmin(repos repomanager.RepositoryManager, hasher *cryptox.Hasher, logger logging.Logger) *Admin {
	return &Admin{repos: repos, hasher: hasher, logger: logger}
}

// PurgeUsers deletes every user and task in one unit of work.
func (s *Admin) PurgeUsers(ctx context.Context) (usersDeleted, tasksDeleted int64, err error) {
	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		if tasksDeleted, err = r.Tasks.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if usersDeleted, err = r.Users.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	s.logger.Warn(ctx, "all users purged", "users", usersDeleted, "tasks", tasksDeleted)
	return usersDeleted, tasksDeleted, nil
}

// DeleteUser removes the user with username together with their tasks.
func (s *Admin) DeleteUser(ctx context.Context, username string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		user, err := r.Users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if _, err := r.Tasks.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := r.Users.Delete(ctx, user.ID); err != nil {
			return err
		}
		s.logger.Info(ctx, "user deleted", "user_id", user.ID, "username", username)
		return nil
	})
}

// SetPassword replaces the password of the user with username.
func (s *Admin) SetPassword(ctx context.Context, username, password string) error {
	user, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.repos.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info(ctx, "password set by operator", "user_id", user.ID)
	return nil
}
