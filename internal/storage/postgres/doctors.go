package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func (r *DoctorRepository) GetByID(ctx context.Context, id string) (*doctor.Doctor, error) {
	var d doctor.Doctor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate("get doctor", err, doctor.ErrDoctorNotFound, nil)
	}
	return &d, nil
}

func (r *DoctorRepository) List(ctx context.Context, q doctor.SearchQuery) ([]*doctor.Doctor, error) {
	q = q.Normalized()
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{})
	if q.Department != "" {
		tx = tx.Where("LOWER(department) = LOWER(?)", q.Department)
	}
	if q.Specialty != "" {
		tx = tx.Where("LOWER(specialty) = LOWER(?)", q.Specialty)
	}

	var out []*doctor.Doctor
	if err := tx.Order("id ASC").Find(&out).Error; err != nil {
		return nil, translate("list doctors", err, nil, nil)
	}
	return out, nil
}

func (r *DoctorRepository) Upsert(ctx context.Context, d *doctor.Doctor) error {
	return translate("upsert doctor", r.db.WithContext(ctx).Save(d).Error, nil, nil)
}
