// Package events announces appointment lifecycle changes to other systems.
package events

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

type Type string

const (
	AppointmentBooked      Type = "appointment.booked"
	AppointmentCancelled   Type = "appointment.cancelled"
	AppointmentRescheduled Type = "appointment.rescheduled"
	AppointmentUpdated     Type = "appointment.updated"
	AppointmentConfirmed   Type = "appointment.confirmed"
	AppointmentCompleted   Type = "appointment.completed"
)

type Event struct {
	ID            uuid.UUID    `json:"id"`
	Type          Type         `json:"type"`
	AppointmentID uuid.UUID    `json:"appointment_id"`
	DoctorID      string       `json:"doctor_id"`
	PatientID     string       `json:"patient_email"`
	Date          domain.Date  `json:"date"`
	Time          domain.Clock `json:"time"`
	Status        string       `json:"status"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
