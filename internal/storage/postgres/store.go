// Package postgres implements the repositories on gorm. The slot invariant is
// backed by the uq_appointments_live_slot partial unique index created by
// database.Migrate.
package postgres

import (
	"errors"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{db: s.db}
}

func (s *Store) Doctors() *DoctorRepository {
	return &DoctorRepository{db: s.db}
}

func (s *Store) Feedback() *FeedbackRepository {
	return &FeedbackRepository{db: s.db}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

func (s *Store) Audit() *AuditRepository {
	return &AuditRepository{db: s.db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto domain errors. notFound and duplicate may be nil.
func translate(op string, err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	}
	return domain.NewStorageError(op, err)
}
