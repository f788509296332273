package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"neuroscan/internal/domain/user"
	"neuroscan/internal/repository"
	neuroscan_errors "neuroscan/pkg/errors"

	"github.com/google/uuid"
)

// MemoryUserRepository keeps user accounts in process memory with a
// case-insensitive username uniqueness guarantee.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*user.User
	byUsername map[string]uuid.UUID
}

func NewUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[uuid.UUID]*user.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func (r *MemoryUserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := r.byUsername[key]; exists {
		return neuroscan_errors.ErrAlreadyExists
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	stored := *u
	r.users[u.ID] = &stored
	r.byUsername[key] = u.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, neuroscan_errors.ErrNotFound
	}
	return *u, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return user.User{}, neuroscan_errors.ErrNotFound
	}
	return *r.users[id], nil
}
