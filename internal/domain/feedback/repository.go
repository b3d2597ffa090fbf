package feedback

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrFeedbackExists if the appointment already has feedback.
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error)
	Save(ctx context.Context, f *Feedback) error

	// ListByPatient returns active feedback, newest first.
	ListByPatient(ctx context.Context, patientID string) ([]*Feedback, error)
}
