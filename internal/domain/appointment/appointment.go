package appointment

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

const DefaultType = "consultation"

// State transitions possibilities:
//
//	pending → confirmed → completed
//	pending → cancelled
//	confirmed → cancelled
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OccupiesSlot reports whether an appointment in status s holds its slot.
func (s Status) OccupiesSlot() bool {
	return s == StatusPending || s == StatusConfirmed
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

type Appointment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`

	DoctorID    string `json:"doctor_id" gorm:"column:doctor_id;type:varchar(64);not null;index:idx_appointments_slot"`
	DoctorName  string `json:"doctor_name,omitempty" gorm:"column:doctor_name;type:varchar(255)"`
	Department  string `json:"department,omitempty" gorm:"column:department;type:varchar(100)"`
	Specialty   string `json:"specialty,omitempty" gorm:"column:specialty;type:varchar(100)"`
	PatientID   string `json:"patient_email" gorm:"column:patient_email;type:varchar(255);not null;index"`
	PatientName string `json:"patient_name,omitempty" gorm:"column:patient_name;type:varchar(255)"`

	Date domain.Date  `json:"date" gorm:"column:date;type:varchar(10);not null;index:idx_appointments_slot"`
	Time domain.Clock `json:"time" gorm:"column:time;type:varchar(5);not null;index:idx_appointments_slot"`

	Type   string `json:"type" gorm:"column:type;type:varchar(50);not null"`
	Status Status `json:"status" gorm:"column:status;type:varchar(20);not null;default:'pending';index"`
	Notes  string `json:"notes" gorm:"column:notes;type:text"`

	Rated  bool `json:"rated,omitempty" gorm:"column:rated;default:false"`
	Rating *int `json:"rating,omitempty" gorm:"column:rating"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) CanTransitionTo(next Status) bool {
	for _, s := range transitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// OwnedBy compares patient identifiers case-insensitively; they are emails.
func (a *Appointment) OwnedBy(patientID string) bool {
	return strings.EqualFold(a.PatientID, strings.TrimSpace(patientID))
}

// Occupies reports whether a holds the given slot.
func (a *Appointment) Occupies(doctorID string, date domain.Date, t domain.Clock) bool {
	return a.Status.OccupiesSlot() && a.DoctorID == doctorID && a.Date == date && a.Time == t
}

func (a *Appointment) transition(next Status, now time.Time) error {
	if !a.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

func (a *Appointment) Cancel(now time.Time) error {
	return a.transition(StatusCancelled, now)
}

func (a *Appointment) Confirm(now time.Time) error {
	return a.transition(StatusConfirmed, now)
}

func (a *Appointment) Complete(now time.Time) error {
	return a.transition(StatusCompleted, now)
}

// Reschedule moves a non-terminal appointment. The caller is responsible for
// the conflict check.
func (a *Appointment) Reschedule(date domain.Date, t domain.Clock, now time.Time) error {
	if a.Status.IsTerminal() {
		return ErrInvalidStatusTransition
	}
	a.Date = date
	a.Time = t
	a.UpdatedAt = now
	return nil
}

func (a *Appointment) UpdateNotes(notes *string, now time.Time) error {
	if a.Status.IsTerminal() {
		return ErrInvalidStatusTransition
	}
	if notes != nil {
		a.Notes = *notes
	}
	a.UpdatedAt = now
	return nil
}

// Clone returns a copy that shares no mutable state with a.
func (a *Appointment) Clone() *Appointment {
	c := *a
	if a.Rating != nil {
		r := *a.Rating
		c.Rating = &r
	}
	return &c
}

// Action names accepted by the update operation.
type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionUpdate     Action = "update"
)

// ParseAction normalises case and whitespace. Unknown names are returned as-is
// so the caller can report them.
func ParseAction(s string) Action {
	return Action(strings.ToLower(strings.TrimSpace(s)))
}

type BookCommand struct {
	DoctorID    string
	PatientID   string
	PatientName string
	Date        string
	Time        string
	Type        string
	Notes       string
}

type UpdateCommand struct {
	Action  string
	NewDate string
	NewTime string
	Notes   *string
}

// Scope filters a patient's appointment list.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeUpcoming, ScopePast:
		return true
	}
	return false
}

// Matches applies the scope relative to today.
func (s Scope) Matches(a *Appointment, today domain.Date) bool {
	switch s {
	case ScopeUpcoming:
		return !a.Date.Before(today) && a.Status.OccupiesSlot()
	case ScopePast:
		return a.Date.Before(today) || a.Status.IsTerminal()
	}
	return true
}

type ListAppointmentsQuery struct {
	PatientID *string
	DoctorID  *string
	Date      *domain.Date
	Status    *Status
}

// Matches applies every non-nil filter.
func (q *ListAppointmentsQuery) Matches(a *Appointment) bool {
	if q == nil {
		return true
	}
	if q.PatientID != nil && !a.OwnedBy(*q.PatientID) {
		return false
	}
	if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
		return false
	}
	if q.Date != nil && a.Date != *q.Date {
		return false
	}
	if q.Status != nil && a.Status != *q.Status {
		return false
	}
	return true
}

type PagedAppointments struct {
	Appointments []*Appointment `json:"appointments"`
	TotalCount   int            `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
}

// SortBySlot orders by (date, time), the order every listing uses.
func SortBySlot(a, b *Appointment) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return int(a.Time) - int(b.Time)
}
