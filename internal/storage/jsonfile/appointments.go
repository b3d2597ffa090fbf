package jsonfile

import (
	"context"
	"slices"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/google/uuid"
)

const appointmentsKey = "appointments"

type AppointmentRepository struct {
	store *Store
}

func (r *AppointmentRepository) load() ([]*appointment.Appointment, error) {
	return readCollection[appointment.Appointment](r.store, appointmentsFile, appointmentsKey)
}

func (r *AppointmentRepository) write(items []*appointment.Appointment) error {
	return writeCollection(r.store, appointmentsFile, appointmentsKey, items)
}

func (r *AppointmentRepository) Create(_ context.Context, a *appointment.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	if a.Status.OccupiesSlot() && conflict(items, a.DoctorID, a.Date, a.Time, nil) {
		return appointment.ErrAppointmentConflict
	}
	return r.write(append(items, a.Clone()))
}

func (r *AppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(items, func(a *appointment.Appointment) bool { return a.ID == id })
	if i < 0 {
		return nil, appointment.ErrAppointmentNotFound
	}
	return items[i], nil
}

func (r *AppointmentRepository) Save(_ context.Context, a *appointment.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(items, func(x *appointment.Appointment) bool { return x.ID == a.ID })
	if i < 0 {
		return appointment.ErrAppointmentNotFound
	}
	if a.Status.OccupiesSlot() && conflict(items, a.DoctorID, a.Date, a.Time, &a.ID) {
		return appointment.ErrAppointmentConflict
	}
	items[i] = a.Clone()
	return r.write(items)
}

func (r *AppointmentRepository) List(_ context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*appointment.Appointment, 0, len(items))
	for _, a := range items {
		if q.Matches(a) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, appointment.SortBySlot)
	return out, nil
}

func (r *AppointmentRepository) HasConflict(_ context.Context, doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return false, err
	}
	return conflict(items, doctorID, date, t, excludeID), nil
}

func conflict(items []*appointment.Appointment, doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) bool {
	for _, a := range items {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Occupies(doctorID, date, t) {
			return true
		}
	}
	return false
}
