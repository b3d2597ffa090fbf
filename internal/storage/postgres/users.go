package postgres

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return translate("create user", r.db.WithContext(ctx).Create(u).Error, nil, domain.ErrUserExists)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate("get user", err, domain.ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate("get user", err, domain.ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	res := r.db.WithContext(ctx).Model(u).Select("*").Omit("id", "created_at").Updates(u)
	if res.Error != nil {
		return translate("save user", res.Error, nil, domain.ErrUserExists)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateLoginAttempt locks the row so concurrent failures are all counted.
func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&u).Error; err != nil {
			return err
		}
		u.RecordLogin(success, time.Now().UTC())
		return tx.Model(&u).Select("failed_login_attempts", "locked_until", "last_login_at", "updated_at").Updates(&u).Error
	})
	return translate("record login", err, domain.ErrUserNotFound, nil)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate("update password", res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
