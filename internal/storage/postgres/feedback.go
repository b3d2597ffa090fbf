package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func (r *FeedbackRepository) Create(ctx context.Context, f *feedback.Feedback) error {
	err := r.db.WithContext(ctx).Create(f).Error
	return translate("create feedback", err, nil, feedback.ErrFeedbackExists)
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	var f feedback.Feedback
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate("get feedback", err, feedback.ErrFeedbackNotFound, nil)
	}
	return &f, nil
}

func (r *FeedbackRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*feedback.Feedback, error) {
	var f feedback.Feedback
	if err := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&f).Error; err != nil {
		return nil, translate("get feedback", err, feedback.ErrFeedbackNotFound, nil)
	}
	return &f, nil
}

func (r *FeedbackRepository) Save(ctx context.Context, f *feedback.Feedback) error {
	res := r.db.WithContext(ctx).Model(f).Select("*").Omit("id", "created_at").Updates(f)
	if res.Error != nil {
		return translate("save feedback", res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return feedback.ErrFeedbackNotFound
	}
	return nil
}

func (r *FeedbackRepository) ListByPatient(ctx context.Context, patientID string) ([]*feedback.Feedback, error) {
	var out []*feedback.Feedback
	err := r.db.WithContext(ctx).
		Where("patient_email = ? AND status = ?", domain.NormalizeEmail(patientID), feedback.StatusActive).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate("list feedback", err, nil, nil)
	}
	return out, nil
}
