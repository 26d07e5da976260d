package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. It backs tests
// and local demo runs.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
	tasks *tasks.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users: users.NewMemoryRepository(users.NewMemoryStore()),
		tasks: tasks.NewMemoryRepository(tasks.NewMemoryStore()),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository { return m.users }
func (m *MemoryRepositoryManager) Tasks() tasks.Repository { return m.tasks }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return fn(ctx, Repositories{Users: m.users, Tasks: m.tasks})
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(ctx context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close(ctx context.Context) error         { return nil }
