package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentConflict     = errors.New("appointment time slot is already booked")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidAction           = errors.New("invalid action: expected cancel, reschedule or update")
	ErrRescheduleTarget        = errors.New("new_date and new_time are required to reschedule")
	ErrInvalidScope            = errors.New("invalid type: expected all, upcoming or past")
)
