package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/memory"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/lock"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2024-01-15 is a Monday.
const monday = "2024-01-15"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	appointments *memory.AppointmentRepository
	doctors      *memory.DoctorRepository
	feedback     *memory.FeedbackRepository
	users        *memory.UserRepository
	audit        *memory.AuditRepository
	publisher    *recordingPublisher
	collector    *metrics.Collector
	auditSvc     *AuditService

	bookings     *BookingService
	availability *AvailabilityService
	feedbackSvc  *FeedbackService
	directory    *DirectoryService
}

func clockPtr(s string) *domain.Clock {
	c := domain.MustParseClock(s)
	return &c
}

func cardiologist() *doctor.Doctor {
	return &doctor.Doctor{
		ID:         "d1",
		FirstName:  "Asha",
		LastName:   "Menon",
		Department: "Cardiology",
		Specialty:  "Interventional",
		WorkingHours: doctor.WorkingHours{
			domain.Monday:    {Start: clockPtr("09:00"), End: clockPtr("10:00")},
			domain.Wednesday: {Start: clockPtr("14:00"), End: clockPtr("16:00")},
		},
		SlotDuration: 30,
	}
}

func neurologist() *doctor.Doctor {
	return &doctor.Doctor{
		ID:           "d2",
		FirstName:    "Ravi",
		LastName:     "Iyer",
		Department:   "Neurology",
		Specialty:    "Epilepsy",
		WorkingHours: doctor.WorkingHours{domain.Monday: {Start: clockPtr("09:00"), End: clockPtr("12:00")}},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		appointments: memory.NewAppointmentRepository(),
		doctors:      memory.NewDoctorRepository(cardiologist(), neurologist()),
		feedback:     memory.NewFeedbackRepository(),
		users:        memory.NewUserRepository(),
		audit:        memory.NewAuditRepository(),
		publisher:    &recordingPublisher{},
		collector:    metrics.NewCollector("test", prometheus.NewRegistry()),
	}
	log := zap.NewNop()

	f.auditSvc = NewAuditService(f.audit, f.collector, log)
	t.Cleanup(func() { f.auditSvc.Shutdown(time.Second) })

	f.bookings = NewBookingService(f.appointments, f.doctors, lock.NewLocal(), f.publisher, f.auditSvc, f.collector,
		BookingConfig{LockTimeout: 2 * time.Second, PublishTimeout: time.Second}, log)
	f.availability = NewAvailabilityService(f.doctors, f.appointments, f.collector, log)
	f.feedbackSvc = NewFeedbackService(f.feedback, f.bookings, f.auditSvc, log)
	f.directory = NewDirectoryService(f.doctors, log)
	return f
}

func patient(email string) Actor {
	return Actor{UserID: uuid.New(), Email: email, Name: "Test Patient", Role: domain.RolePatient}
}

func doctorActor(doctorID string) Actor {
	return Actor{UserID: uuid.New(), Email: doctorID + "@clinic.test", Role: domain.RoleDoctor, DoctorID: &doctorID}
}

func admin() Actor {
	return Actor{UserID: uuid.New(), Email: "admin@clinic.test", Role: domain.RoleAdmin}
}

func bookCmd(actor Actor, doctorID, date, at string) *appointment.BookCommand {
	return &appointment.BookCommand{
		DoctorID:    doctorID,
		PatientID:   actor.Email,
		PatientName: actor.Name,
		Date:        date,
		Time:        at,
	}
}

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) book(t *testing.T, actor Actor, doctorID, date, at string) *appointment.Appointment {
	t.Helper()
	a, err := f.bookings.Book(context.Background(), bookCmd(actor, doctorID, date, at), actor)
	require.NoError(t, err)
	return a
}

func (f *fixture) complete(t *testing.T, a *appointment.Appointment) {
	t.Helper()
	ctx := context.Background()
	_, err := f.bookings.Confirm(ctx, a.ID, doctorActor(a.DoctorID))
	require.NoError(t, err)
	_, err = f.bookings.Complete(ctx, a.ID, doctorActor(a.DoctorID))
	require.NoError(t, err)
}
