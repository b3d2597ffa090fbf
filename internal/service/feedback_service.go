package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FeedbackService struct {
	repo     feedback.Repository
	bookings *BookingService
	auditSvc *AuditService
	log      *zap.Logger
	now      func() time.Time
}

func NewFeedbackService(repo feedback.Repository, bookings *BookingService, auditSvc *AuditService, log *zap.Logger) *FeedbackService {
	return &FeedbackService{
		repo:     repo,
		bookings: bookings,
		auditSvc: auditSvc,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit rates a completed appointment. Each appointment takes one feedback.
func (s *FeedbackService) Submit(ctx context.Context, cmd *feedback.SubmitCommand, actor Actor) (*feedback.Feedback, error) {
	if actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}

	var errs []string
	appointmentID, err := uuid.Parse(strings.TrimSpace(cmd.AppointmentID))
	if err != nil {
		errs = append(errs, "appointment_id must be a valid id")
	}
	if !feedback.ValidRating(cmd.Rating) {
		errs = append(errs, fmt.Sprintf("rating must be between %d and %d", feedback.MinRating, feedback.MaxRating))
	}
	if strings.TrimSpace(cmd.Comment) == "" {
		errs = append(errs, "comment is required")
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	a, err := s.bookings.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	// Someone else's appointment is reported as missing.
	if !a.OwnedBy(actor.PatientID()) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if a.Status != appointment.StatusCompleted {
		return nil, fmt.Errorf("appointment is %s: %w", a.Status, feedback.ErrNotCompleted)
	}

	if _, err := s.repo.GetByAppointment(ctx, a.ID); err == nil {
		return nil, feedback.ErrFeedbackExists
	} else if !errors.Is(err, feedback.ErrFeedbackNotFound) {
		return nil, fmt.Errorf("checking existing feedback: %w", err)
	}

	category := strings.TrimSpace(cmd.Category)
	if category == "" {
		category = feedback.DefaultCategory
	}

	now := s.now()
	f := &feedback.Feedback{
		ID:              uuid.New(),
		CreatedAt:       now,
		UpdatedAt:       now,
		AppointmentID:   a.ID,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		Department:      a.Department,
		Specialty:       a.Specialty,
		Rating:          cmd.Rating,
		Category:        category,
		Comment:         strings.TrimSpace(cmd.Comment),
		WouldRecommend:  cmd.WouldRecommend,
		AppointmentDate: a.Date,
		AppointmentTime: a.Time,
		Status:          feedback.StatusActive,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	if _, err := s.bookings.MarkRated(ctx, a.ID, f.Rating); err != nil {
		// The feedback is stored; the flag only drives the UI.
		s.log.Error("failed to mark appointment rated",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionCreate, "feedback", f.ID.String(), ""))
	return f, nil
}

// History returns the actor's active feedback, most recent first.
func (s *FeedbackService) History(ctx context.Context, actor Actor) ([]*feedback.Feedback, error) {
	if actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}

	list, err := s.repo.ListByPatient(ctx, actor.PatientID())
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	slices.SortStableFunc(list, feedback.NewestFirst)
	return list, nil
}

func (s *FeedbackService) Update(ctx context.Context, id uuid.UUID, actor Actor, cmd *feedback.UpdateCommand) (*feedback.Feedback, error) {
	if actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}

	var errs []string
	if cmd.Rating != nil && !feedback.ValidRating(*cmd.Rating) {
		errs = append(errs, fmt.Sprintf("rating must be between %d and %d", feedback.MinRating, feedback.MaxRating))
	}
	if cmd.Comment != nil && strings.TrimSpace(*cmd.Comment) == "" {
		errs = append(errs, "comment must not be empty")
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.OwnedBy(actor.PatientID()) || f.Status != feedback.StatusActive {
		return nil, feedback.ErrFeedbackNotFound
	}

	f.Apply(*cmd, s.now())
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}

	if cmd.Rating != nil {
		if _, err := s.bookings.MarkRated(ctx, f.AppointmentID, f.Rating); err != nil {
			s.log.Warn("failed to sync appointment rating",
				zap.String("appointment_id", f.AppointmentID.String()),
				zap.Error(err),
			)
		}
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionUpdate, "feedback", f.ID.String(), ""))
	return f, nil
}
