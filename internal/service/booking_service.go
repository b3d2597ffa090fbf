package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/lock"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// How often a write re-locks after finding the appointment moved to
	// another day while it waited.
	maxRelockAttempts = 3
)

type BookingConfig struct {
	LockTimeout    time.Duration
	PublishTimeout time.Duration
}

// BookingService owns the appointment ledger. Every write that can occupy a
// slot runs inside the lock for each (doctor, date) it touches.
type BookingService struct {
	repo      appointment.Repository
	doctors   doctor.Repository
	locker    lock.Locker
	publisher events.Publisher
	auditSvc  *AuditService
	metrics   *metrics.Collector
	tracer    trace.Tracer
	cfg       BookingConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	repo appointment.Repository,
	doctors doctor.Repository,
	locker lock.Locker,
	publisher events.Publisher,
	auditSvc *AuditService,
	collector *metrics.Collector,
	cfg BookingConfig,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		doctors:   doctors,
		locker:    locker,
		publisher: publisher,
		auditSvc:  auditSvc,
		metrics:   collector,
		tracer:    otel.Tracer("medicare/booking"),
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IsSlotFree reports whether no pending or confirmed appointment holds the slot.
func (s *BookingService) IsSlotFree(ctx context.Context, doctorID string, date domain.Date, t domain.Clock) (bool, error) {
	conflict, err := s.repo.HasConflict(ctx, doctorID, date, t, nil)
	if err != nil {
		return false, fmt.Errorf("checking slot: %w", err)
	}
	return !conflict, nil
}

func (s *BookingService) Book(ctx context.Context, cmd *appointment.BookCommand, actor Actor) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Book")
	defer span.End()

	if actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}

	date, at, err := validateBookCommand(cmd)
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	d, err := s.doctors.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("loading doctor: %w", err)
	}
	if !doctor.HasSlot(d, date, at) {
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, &ValidationError{Fields: []string{"time: " + doctor.ErrNotBookable.Error()}, Err: doctor.ErrNotBookable}
	}

	span.SetAttributes(
		attribute.String("doctor.id", d.ID),
		attribute.String("appointment.date", date.String()),
		attribute.String("appointment.time", at.String()),
	)

	var a *appointment.Appointment
	err = s.withLock(ctx, []string{lock.Key(d.ID, date)}, func() error {
		conflict, err := s.repo.HasConflict(ctx, d.ID, date, at, nil)
		if err != nil {
			return fmt.Errorf("checking slot: %w", err)
		}
		if conflict {
			return appointment.ErrAppointmentConflict
		}

		now := s.now()
		a = &appointment.Appointment{
			ID:          uuid.New(),
			CreatedAt:   now,
			UpdatedAt:   now,
			DoctorID:    d.ID,
			DoctorName:  d.FullName(),
			Department:  d.Department,
			Specialty:   d.Specialty,
			PatientID:   domain.NormalizeEmail(cmd.PatientID),
			PatientName: strings.TrimSpace(cmd.PatientName),
			Date:        date,
			Time:        at,
			Type:        strings.TrimSpace(cmd.Type),
			Status:      appointment.StatusPending,
			Notes:       strings.TrimSpace(cmd.Notes),
		}
		if a.Type == "" {
			a.Type = appointment.DefaultType
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, appointment.ErrAppointmentConflict) {
			s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
			return nil, appointment.ErrAppointmentConflict
		}
		span.SetStatus(codes.Error, "booking failed")
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.Error("failed to book appointment", zap.String("doctor_id", d.ID), zap.Error(err))
		return nil, fmt.Errorf("booking appointment: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeBooked).Inc()
	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionCreate, "appointment", a.ID.String(), ""))
	s.publish(ctx, events.AppointmentBooked, a)

	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID),
		zap.String("date", a.Date.String()),
		zap.String("time", a.Time.String()),
	)

	return a, nil
}

// Update applies a patient's cancel, reschedule or notes update.
func (s *BookingService) Update(ctx context.Context, id uuid.UUID, actor Actor, cmd *appointment.UpdateCommand) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Update")
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RolePatient || !current.OwnedBy(actor.PatientID()) {
		return nil, ErrForbidden
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("appointment is %s: %w", current.Status, appointment.ErrInvalidStatusTransition)
	}

	action := appointment.ParseAction(cmd.Action)
	span.SetAttributes(attribute.String("appointment.id", id.String()), attribute.String("action", string(action)))

	var (
		apply     func(a *appointment.Appointment, now time.Time) error
		extraDays []domain.Date
		eventType events.Type
		changes   map[string]any
	)

	switch action {
	case appointment.ActionCancel:
		apply = (*appointment.Appointment).Cancel
		eventType = events.AppointmentCancelled
		changes = map[string]any{"status": appointment.StatusCancelled}

	case appointment.ActionUpdate:
		apply = func(a *appointment.Appointment, now time.Time) error {
			return a.UpdateNotes(cmd.Notes, now)
		}
		eventType = events.AppointmentUpdated
		changes = map[string]any{}
		if cmd.Notes != nil {
			changes["notes"] = *cmd.Notes
		}

	case appointment.ActionReschedule:
		newDate, newTime, err := parseRescheduleTarget(cmd)
		if err != nil {
			return nil, err
		}
		if newDate != current.Date || newTime != current.Time {
			d, err := s.doctors.GetByID(ctx, current.DoctorID)
			if err != nil {
				return nil, fmt.Errorf("loading doctor: %w", err)
			}
			if !doctor.HasSlot(d, newDate, newTime) {
				return nil, &ValidationError{Fields: []string{"new_time: " + doctor.ErrNotBookable.Error()}, Err: doctor.ErrNotBookable}
			}
		}
		extraDays = []domain.Date{newDate}
		apply = func(a *appointment.Appointment, now time.Time) error {
			if a.Status.IsTerminal() {
				return appointment.ErrInvalidStatusTransition
			}
			conflict, err := s.repo.HasConflict(ctx, a.DoctorID, newDate, newTime, &a.ID)
			if err != nil {
				return fmt.Errorf("checking slot: %w", err)
			}
			if conflict {
				return appointment.ErrAppointmentConflict
			}
			return a.Reschedule(newDate, newTime, now)
		}
		eventType = events.AppointmentRescheduled
		changes = map[string]any{
			"from": current.Date.String() + " " + current.Time.String(),
			"to":   newDate.String() + " " + newTime.String(),
		}

	default:
		return nil, fmt.Errorf("%w: %q", appointment.ErrInvalidAction, cmd.Action)
	}

	a, err := s.mutate(ctx, current, extraDays, apply)
	if err != nil {
		span.RecordError(err)
		s.metrics.AppointmentTransitions.WithLabelValues(string(action), outcomeOf(err)).Inc()
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(action), "ok").Inc()
	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionUpdate, "appointment", a.ID.String(), marshalChanges(changes)))
	s.publish(ctx, eventType, a)

	return a, nil
}

// Confirm moves a pending appointment to confirmed. Only the appointment's
// doctor or an admin may do so.
func (s *BookingService) Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*appointment.Appointment, error) {
	return s.advance(ctx, id, actor, "confirm", events.AppointmentConfirmed, (*appointment.Appointment).Confirm)
}

// Complete moves a confirmed appointment to completed.
func (s *BookingService) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*appointment.Appointment, error) {
	return s.advance(ctx, id, actor, "complete", events.AppointmentCompleted, (*appointment.Appointment).Complete)
}

func (s *BookingService) advance(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	action string,
	eventType events.Type,
	apply func(a *appointment.Appointment, now time.Time) error,
) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService."+action)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.ManagesDoctor(current.DoctorID) {
		return nil, ErrForbidden
	}

	a, err := s.mutate(ctx, current, nil, apply)
	if err != nil {
		s.metrics.AppointmentTransitions.WithLabelValues(action, outcomeOf(err)).Inc()
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(action, "ok").Inc()
	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionUpdate, "appointment", a.ID.String(),
		marshalChanges(map[string]any{"status": a.Status})))
	s.publish(ctx, eventType, a)

	return a, nil
}

// MarkRated records the rating left by feedback on the appointment.
func (s *BookingService) MarkRated(ctx context.Context, id uuid.UUID, rating int) (*appointment.Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, current, nil, func(a *appointment.Appointment, now time.Time) error {
		a.Rated = true
		a.Rating = &rating
		a.UpdatedAt = now
		return nil
	})
}

// Get returns an appointment to its patient, its doctor or an admin.
func (s *BookingService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := actor.IsAdmin() ||
		actor.ManagesDoctor(a.DoctorID) ||
		(actor.Role == domain.RolePatient && a.OwnedBy(actor.PatientID()))
	if !allowed {
		return nil, ErrForbidden
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionRead, "appointment", id.String(), ""))
	return a, nil
}

// ListForPatient returns the actor's own appointments ordered by (date, time).
func (s *BookingService) ListForPatient(ctx context.Context, actor Actor, rawScope string, page, pageSize int) (*appointment.PagedAppointments, error) {
	if actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}

	scope := appointment.Scope(strings.ToLower(strings.TrimSpace(rawScope)))
	if scope == "" {
		scope = appointment.ScopeAll
	}
	if !scope.IsValid() {
		return nil, &ValidationError{Fields: []string{appointment.ErrInvalidScope.Error()}, Err: appointment.ErrInvalidScope}
	}

	patientID := actor.PatientID()
	all, err := s.repo.List(ctx, &appointment.ListAppointmentsQuery{PatientID: &patientID})
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	today := domain.DateOf(s.now())
	matched := make([]*appointment.Appointment, 0, len(all))
	for _, a := range all {
		if scope.Matches(a, today) {
			matched = append(matched, a)
		}
	}

	return paginate(matched, page, pageSize), nil
}

// ListForDoctor returns a doctor's appointments on one day, ordered by time.
// An empty date means today.
func (s *BookingService) ListForDoctor(ctx context.Context, actor Actor, doctorID, rawDate string) ([]*appointment.Appointment, error) {
	if !actor.IsAdmin() && !actor.ManagesDoctor(doctorID) {
		return nil, ErrForbidden
	}

	date := domain.DateOf(s.now())
	if strings.TrimSpace(rawDate) != "" {
		var err error
		if date, err = domain.ParseDate(rawDate); err != nil {
			return nil, invalid("date: " + err.Error())
		}
	}

	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("loading doctor: %w", err)
	}

	list, err := s.repo.List(ctx, &appointment.ListAppointmentsQuery{DoctorID: &doctorID, Date: &date})
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return list, nil
}

// mutate reloads the appointment under the lock for its day (plus extraDays),
// applies fn and saves the result. If the appointment moved to another day
// while we waited, the locks are retaken for the new day.
func (s *BookingService) mutate(
	ctx context.Context,
	snapshot *appointment.Appointment,
	extraDays []domain.Date,
	fn func(a *appointment.Appointment, now time.Time) error,
) (*appointment.Appointment, error) {
	for range maxRelockAttempts {
		keys := []string{lock.Key(snapshot.DoctorID, snapshot.Date)}
		for _, d := range extraDays {
			keys = append(keys, lock.Key(snapshot.DoctorID, d))
		}

		var (
			result *appointment.Appointment
			moved  bool
		)
		err := s.withLock(ctx, keys, func() error {
			a, err := s.repo.GetByID(ctx, snapshot.ID)
			if err != nil {
				return err
			}
			if a.DoctorID != snapshot.DoctorID || a.Date != snapshot.Date {
				snapshot, moved = a, true
				return nil
			}
			if err := fn(a, s.now()); err != nil {
				return err
			}
			if err := s.repo.Save(ctx, a); err != nil {
				return err
			}
			result = a
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !moved {
			return result, nil
		}
	}
	return nil, fmt.Errorf("appointment %s: %w", snapshot.ID, lock.ErrLockTimeout)
}

func (s *BookingService) withLock(ctx context.Context, keys []string, fn func() error) error {
	lockCtx := ctx
	if s.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()
	}

	start := time.Now()
	unlock, err := s.locker.Lock(lockCtx, keys...)
	s.metrics.LockWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}

// publish never fails the caller; the ledger is the source of truth.
func (s *BookingService) publish(ctx context.Context, t events.Type, a *appointment.Appointment) {
	timeout := s.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := s.publisher.Publish(ctx, events.Event{
		ID:            uuid.New(),
		Type:          t,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Date:          a.Date,
		Time:          a.Time,
		Status:        string(a.Status),
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.metrics.EventsPublished.WithLabelValues(string(t), "error").Inc()
		s.log.Warn("failed to publish appointment event",
			zap.String("type", string(t)),
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.metrics.EventsPublished.WithLabelValues(string(t), "ok").Inc()
}

func validateBookCommand(cmd *appointment.BookCommand) (domain.Date, domain.Clock, error) {
	var (
		errs []string
		date domain.Date
		at   domain.Clock
		err  error
	)

	if strings.TrimSpace(cmd.DoctorID) == "" {
		errs = append(errs, "doctor_id is required")
	}
	if strings.TrimSpace(cmd.PatientID) == "" {
		errs = append(errs, "patient_id is required")
	}
	if strings.TrimSpace(cmd.Date) == "" {
		errs = append(errs, "date is required")
	} else if date, err = domain.ParseDate(cmd.Date); err != nil {
		errs = append(errs, "date: "+err.Error())
	}
	if strings.TrimSpace(cmd.Time) == "" {
		errs = append(errs, "time is required")
	} else if at, err = domain.ParseClock(cmd.Time); err != nil {
		errs = append(errs, "time: "+err.Error())
	}

	if len(errs) > 0 {
		return domain.Date{}, 0, &ValidationError{Fields: errs}
	}
	return date, at, nil
}

func parseRescheduleTarget(cmd *appointment.UpdateCommand) (domain.Date, domain.Clock, error) {
	if strings.TrimSpace(cmd.NewDate) == "" || strings.TrimSpace(cmd.NewTime) == "" {
		return domain.Date{}, 0, &ValidationError{
			Fields: []string{appointment.ErrRescheduleTarget.Error()},
			Err:    appointment.ErrRescheduleTarget,
		}
	}

	var errs []string
	date, err := domain.ParseDate(cmd.NewDate)
	if err != nil {
		errs = append(errs, "new_date: "+err.Error())
	}
	at, err := domain.ParseClock(cmd.NewTime)
	if err != nil {
		errs = append(errs, "new_time: "+err.Error())
	}
	if len(errs) > 0 {
		return domain.Date{}, 0, &ValidationError{Fields: errs}
	}
	return date, at, nil
}

func paginate(items []*appointment.Appointment, page, pageSize int) *appointment.PagedAppointments {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	// Pages past the end are empty and never reach the multiplication.
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, total)

	return &appointment.PagedAppointments{
		Appointments: items[start:end],
		TotalCount:   total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, appointment.ErrAppointmentConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

func marshalChanges(changes map[string]any) string {
	if len(changes) == 0 {
		return ""
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return ""
	}
	return string(b)
}
