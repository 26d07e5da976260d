package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryStore keeps tasks in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	items []models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

type MemoryRepository struct {
	s *MemoryStore
}

func NewMemoryRepository(s *MemoryStore) *MemoryRepository {
	return &MemoryRepository{s: s}
}

func (r *MemoryRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task.ID = uuid.NewString()
	task.CreatedAt = time.Now().UTC()
	r.s.items = append(r.s.items, *task)
	return task, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []models.Task{}
	for _, t := range r.s.items {
		if t.UserID == userID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.items[:0]
	var n int64
	for _, t := range r.s.items {
		if t.UserID == userID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.s.items = kept
	return n, nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := int64(len(r.s.items))
	r.s.items = nil
	return n, nil
}
