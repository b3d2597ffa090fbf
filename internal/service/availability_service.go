package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"go.uber.org/zap"
)

type SlotView struct {
	Time            domain.Clock `json:"time"`
	DurationMinutes int          `json:"duration_minutes"`
	Available       bool         `json:"available"`
}

type DaySlots struct {
	DoctorID     string         `json:"doctor_id"`
	DoctorName   string         `json:"doctor_name"`
	Date         domain.Date    `json:"date"`
	Weekday      domain.Weekday `json:"weekday"`
	WorkingHours *doctor.Window `json:"working_hours"`
	Slots        []SlotView     `json:"slots"`
}

type AvailabilityService struct {
	doctors      doctor.Repository
	appointments appointment.Repository
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewAvailabilityService(doctors doctor.Repository, appointments appointment.Repository, collector *metrics.Collector, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{doctors: doctors, appointments: appointments, metrics: collector, log: log}
}

// DaySlots resolves the doctor's slots on date and marks each free or taken
// using a single read of that day's appointments.
func (s *AvailabilityService) DaySlots(ctx context.Context, doctorID, rawDate string) (*DaySlots, error) {
	var errs []string
	if strings.TrimSpace(doctorID) == "" {
		errs = append(errs, "doctor_id is required")
	}
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		errs = append(errs, "date: "+err.Error())
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("loading doctor: %w", err)
	}

	live, err := s.appointments.List(ctx, &appointment.ListAppointmentsQuery{DoctorID: &doctorID, Date: &date})
	if err != nil {
		return nil, fmt.Errorf("loading appointments: %w", err)
	}
	taken := make(map[domain.Clock]bool, len(live))
	for _, a := range live {
		if a.Status.OccupiesSlot() {
			taken[a.Time] = true
		}
	}

	out := &DaySlots{
		DoctorID:     d.ID,
		DoctorName:   d.FullName(),
		Date:         date,
		Weekday:      date.Weekday(),
		WorkingHours: d.WindowOn(date),
		Slots:        []SlotView{},
	}
	for slot := range doctor.ResolveSlots(d, date) {
		out.Slots = append(out.Slots, SlotView{
			Time:            slot.Time,
			DurationMinutes: int(slot.Duration.Minutes()),
			Available:       !taken[slot.Time],
		})
	}

	s.metrics.SlotQueriesTotal.Inc()
	return out, nil
}
