package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryStore holds users in process memory. Repositories created from the
// same store share its data.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]models.User)}
}

type MemoryRepository struct {
	s *MemoryStore
}

func NewMemoryRepository(s *MemoryStore) *MemoryRepository {
	return &MemoryRepository{s: s}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.byID {
		if u.Email == user.Email || (user.Username != "" && u.Username == user.Username) {
			return nil, common.ErrorAlreadyExists
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	stored := *user
	stored.Tasks = nil
	r.s.byID[user.ID] = stored
	return user, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) Claim(ctx context.Context, id, username, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.byID[id]
	if !ok || u.Username != "" {
		return common.ErrorNotFound
	}
	for _, other := range r.s.byID {
		if other.Username == username {
			return common.ErrorAlreadyExists
		}
	}
	u.Username = username
	u.PasswordHash = passwordHash
	r.s.byID[id] = u
	return nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	r.s.byID[id] = u
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.byID, id)
	return nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := int64(len(r.s.byID))
	r.s.byID = make(map[string]models.User)
	return n, nil
}

func (r *MemoryRepository) find(match func(u *models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.byID {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}
