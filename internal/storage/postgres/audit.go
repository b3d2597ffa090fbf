package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return translate("create audit log", r.db.WithContext(ctx).Create(entry).Error, nil, nil)
}
