package jsonfile

import (
	"context"
	"slices"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

const usersKey = "users"

type UserRepository struct {
	store *Store
}

func (r *UserRepository) load() ([]*domain.User, error) {
	return readCollection[domain.User](r.store, usersFile, usersKey)
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	email := domain.NormalizeEmail(u.Email)
	if slices.ContainsFunc(items, func(x *domain.User) bool { return domain.NormalizeEmail(x.Email) == email }) {
		return domain.ErrUserExists
	}
	c := *u
	return writeCollection(r.store, usersFile, usersKey, append(items, &c))
}

func (r *UserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(items, match); i >= 0 {
		return items[i], nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	return r.find(func(u *domain.User) bool { return domain.NormalizeEmail(u.Email) == email })
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

// modify applies fn to the stored user and writes the collection back.
func (r *UserRepository) modify(id uuid.UUID, fn func(*domain.User)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(items, func(u *domain.User) bool { return u.ID == id })
	if i < 0 {
		return domain.ErrUserNotFound
	}
	fn(items[i])
	return writeCollection(r.store, usersFile, usersKey, items)
}

func (r *UserRepository) Save(_ context.Context, u *domain.User) error {
	return r.modify(u.ID, func(stored *domain.User) { *stored = *u })
}

func (r *UserRepository) UpdateLoginAttempt(_ context.Context, id uuid.UUID, success bool) error {
	return r.modify(id, func(u *domain.User) { u.RecordLogin(success, time.Now().UTC()) })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.modify(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
	})
}
