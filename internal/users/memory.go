package users

import (
	"context"
	"sync"
	"time"

	"github.com/docgate/docgate/internal/models"
)

// MemoryUserRepository is the in-memory account store for unit tests and dev
// mode without MongoDB.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byUID   map[string]*models.User
	byEmail map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byUID:   make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[u.Email]; exists {
		return ErrEmailTaken
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	r.byUID[u.UID] = &cp
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) GetByUID(_ context.Context, uid string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUID[uid]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
