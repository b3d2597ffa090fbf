// Package memory keeps every collection in process maps. It backs tests and
// demo deployments; nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/google/uuid"
)

type AppointmentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*appointment.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *AppointmentRepository) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Status.OccupiesSlot() && r.conflictLocked(a.DoctorID, a.Date, a.Time, nil) {
		return appointment.ErrAppointmentConflict
	}
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return a.Clone(), nil
}

func (r *AppointmentRepository) Save(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	if a.Status.OccupiesSlot() && r.conflictLocked(a.DoctorID, a.Date, a.Time, &a.ID) {
		return appointment.ErrAppointmentConflict
	}
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *AppointmentRepository) List(_ context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*appointment.Appointment, 0)
	for _, a := range r.items {
		if q.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	slices.SortFunc(out, appointment.SortBySlot)
	return out, nil
}

func (r *AppointmentRepository) HasConflict(_ context.Context, doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflictLocked(doctorID, date, t, excludeID), nil
}

func (r *AppointmentRepository) conflictLocked(doctorID string, date domain.Date, t domain.Clock, excludeID *uuid.UUID) bool {
	for id, a := range r.items {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if a.Occupies(doctorID, date, t) {
			return true
		}
	}
	return false
}

type DoctorRepository struct {
	mu    sync.RWMutex
	items map[string]*doctor.Doctor
}

func NewDoctorRepository(seed ...*doctor.Doctor) *DoctorRepository {
	r := &DoctorRepository{items: make(map[string]*doctor.Doctor, len(seed))}
	for _, d := range seed {
		r.items[d.ID] = d
	}
	return r
}

func (r *DoctorRepository) GetByID(_ context.Context, id string) (*doctor.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	c := *d
	return &c, nil
}

func (r *DoctorRepository) List(_ context.Context, q doctor.SearchQuery) ([]*doctor.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*doctor.Doctor, 0, len(r.items))
	for _, d := range r.items {
		if q.Matches(d) {
			c := *d
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *doctor.Doctor) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *DoctorRepository) Upsert(_ context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *d
	now := time.Now().UTC()
	if existing, ok := r.items[d.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.items[d.ID] = &c
	return nil
}

type FeedbackRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*feedback.Feedback
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{items: make(map[uuid.UUID]*feedback.Feedback)}
}

func (r *FeedbackRepository) Create(_ context.Context, f *feedback.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.AppointmentID == f.AppointmentID {
			return feedback.ErrFeedbackExists
		}
	}
	c := *f
	r.items[f.ID] = &c
	return nil
}

func (r *FeedbackRepository) GetByID(_ context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[id]
	if !ok {
		return nil, feedback.ErrFeedbackNotFound
	}
	c := *f
	return &c, nil
}

func (r *FeedbackRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*feedback.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.items {
		if f.AppointmentID == appointmentID {
			c := *f
			return &c, nil
		}
	}
	return nil, feedback.ErrFeedbackNotFound
}

func (r *FeedbackRepository) Save(_ context.Context, f *feedback.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[f.ID]; !ok {
		return feedback.ErrFeedbackNotFound
	}
	c := *f
	r.items[f.ID] = &c
	return nil
}

func (r *FeedbackRepository) ListByPatient(_ context.Context, patientID string) ([]*feedback.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*feedback.Feedback, 0)
	for _, f := range r.items {
		if f.Status == feedback.StatusActive && f.OwnedBy(patientID) {
			c := *f
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, feedback.NewestFirst)
	return out, nil
}

type UserRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[uuid.UUID]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrUserExists
		}
	}
	c := *u
	r.items[u.ID] = &c
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, u := range r.items {
		if domain.NormalizeEmail(u.Email) == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	c := *u
	r.items[u.ID] = &c
	return nil
}

func (r *UserRepository) UpdateLoginAttempt(_ context.Context, id uuid.UUID, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RecordLogin(success, time.Now().UTC())
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

type AuditRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (r *AuditRepository) Entries() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}
