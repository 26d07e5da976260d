package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// Tasks manages the per-user task list. Callers may only act on their own
// list.
type Tasks struct {
	repos repomanager.RepositoryManager
}

func NewTasks(repos repomanager.RepositoryManager) *Tasks {
	return &Tasks{repos: repos}
}

// Create adds a task for userID. It returns common.ErrorForbidden when
// callerID is someone else and common.ErrorNotFound when the user does not
// exist.
func (s *Tasks) Create(ctx context.Context, callerID, userID, content string) (*models.Task, error) {
	if err := s.checkOwner(ctx, callerID, userID); err != nil {
		return nil, err
	}

	task, err := s.repos.Tasks().Create(ctx, &models.Task{Content: content, UserID: userID})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns the tasks of userID in creation order, never nil.
func (s *Tasks) List(ctx context.Context, callerID, userID string) ([]models.Task, error) {
	if err := s.checkOwner(ctx, callerID, userID); err != nil {
		return nil, err
	}

	list, err := s.repos.Tasks().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

func (s *Tasks) checkOwner(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		return common.ErrorForbidden
	}
	if _, err := s.repos.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	return nil
}
