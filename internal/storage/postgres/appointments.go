package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var liveStatuses = []appointment.Status{appointment.StatusPending, appointment.StatusConfirmed}

type AppointmentRepository struct {
	db *gorm.DB
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	err := r.db.WithContext(ctx).Create(a).Error
	return translate("create appointment", err, nil, appointment.ErrAppointmentConflict)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, translate("get appointment", err, appointment.ErrAppointmentNotFound, nil)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).Model(a).Select("*").Omit("id", "created_at").Updates(a)
	if res.Error != nil {
		return translate("save appointment", res.Error, nil, appointment.ErrAppointmentConflict)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	tx := r.db.WithContext(ctx).Model(&appointment.Appointment{})
	if q != nil {
		if q.PatientID != nil {
			tx = tx.Where("patient_email = ?", domain.NormalizeEmail(*q.PatientID))
		}
		if q.DoctorID != nil {
			tx = tx.Where("doctor_id = ?", *q.DoctorID)
		}
		if q.Date != nil {
			tx = tx.Where("date = ?", *q.Date)
		}
		if q.Status != nil {
			tx = tx.Where("status = ?", *q.Status)
		}
	}

	var out []*appointment.Appointment
	if err := tx.Order("date ASC, time ASC").Find(&out).Error; err != nil {
		return nil, translate("list appointments", err, nil, nil)
	}
	return out, nil
}

func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&appointment.Appointment{}).
		Where("doctor_id = ? AND date = ? AND time = ? AND status IN ?", doctorID, date, t, liveStatuses)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, translate("check appointment conflict", err, nil, nil)
	}
	return count > 0, nil
}
