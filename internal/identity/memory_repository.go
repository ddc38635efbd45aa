package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]User
	byEml map[string]string
}

// NewMemoryRepository builds an in-memory user store for tests and
// database-less development runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]User), byEml: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEml[user.Email]; exists {
		return ErrEmailTaken
	}
	r.byID[user.ID] = user
	r.byEml[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEml[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) UpdateEmail(_ context.Context, id, email string) error {
	return r.mutate(id, func(u *User) {
		delete(r.byEml, u.Email)
		u.Email = email
		r.byEml[email] = id
	})
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id, name, phone string) error {
	return r.mutate(id, func(u *User) {
		u.Name = name
		u.Phone = phone
	})
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, hash []byte, tokenVersion int) error {
	return r.mutate(id, func(u *User) {
		u.PasswordHash = hash
		u.TokenVersion = tokenVersion
	})
}

func (r *memoryRepository) SetVerified(_ context.Context, id string) error {
	return r.mutate(id, func(u *User) { u.Verified = true })
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.mutate(id, func(u *User) { u.TokenVersion = version })
}

func (r *memoryRepository) mutate(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	r.byID[id] = user
	return nil
}
