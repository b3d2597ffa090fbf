package appointment

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new appointment. It returns ErrAppointmentConflict when
	// another slot-occupying appointment already holds (doctor, date, time).
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save overwrites an existing appointment, with the same conflict rule as Create.
	Save(ctx context.Context, a *Appointment) error

	// List returns every matching appointment ordered by (date, time).
	List(ctx context.Context, q *ListAppointmentsQuery) ([]*Appointment, error)

	// HasConflict checks whether a pending or confirmed appointment other than
	// excludeID holds the slot.
	HasConflict(ctx context.Context, doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) (bool, error)
}
