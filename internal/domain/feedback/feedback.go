package feedback

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5

	DefaultCategory = "overall"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type Feedback struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`

	AppointmentID uuid.UUID `json:"appointment_id" gorm:"type:uuid;not null;uniqueIndex"`
	PatientID     string    `json:"patient_email" gorm:"column:patient_email;type:varchar(255);not null;index"`
	PatientName   string    `json:"patient_name,omitempty" gorm:"column:patient_name;type:varchar(255)"`
	DoctorID      string    `json:"doctor_id" gorm:"column:doctor_id;type:varchar(64);not null;index"`
	DoctorName    string    `json:"doctor_name,omitempty" gorm:"column:doctor_name;type:varchar(255)"`
	Department    string    `json:"department,omitempty" gorm:"column:department;type:varchar(100)"`
	Specialty     string    `json:"specialty,omitempty" gorm:"column:specialty;type:varchar(100)"`

	Rating         int    `json:"rating" gorm:"column:rating;not null"`
	Category       string `json:"category" gorm:"column:category;type:varchar(50);not null"`
	Comment        string `json:"comment" gorm:"column:comment;type:text;not null"`
	WouldRecommend bool   `json:"would_recommend" gorm:"column:would_recommend"`

	AppointmentDate domain.Date  `json:"appointment_date" gorm:"column:appointment_date;type:varchar(10)"`
	AppointmentTime domain.Clock `json:"appointment_time" gorm:"column:appointment_time;type:varchar(5)"`

	Status Status `json:"status" gorm:"column:status;type:varchar(20);not null;default:'active';index"`
}

func (Feedback) TableName() string {
	return "clinical.feedback"
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

func (f *Feedback) OwnedBy(patientID string) bool {
	return strings.EqualFold(f.PatientID, strings.TrimSpace(patientID))
}

// Apply changes only the fields that are set. The rating must already be valid.
func (f *Feedback) Apply(cmd UpdateCommand, now time.Time) {
	if cmd.Rating != nil {
		f.Rating = *cmd.Rating
	}
	if cmd.Comment != nil {
		f.Comment = strings.TrimSpace(*cmd.Comment)
	}
	if cmd.WouldRecommend != nil {
		f.WouldRecommend = *cmd.WouldRecommend
	}
	f.UpdatedAt = now
}

type SubmitCommand struct {
	AppointmentID  string
	PatientID      string
	Rating         int
	Category       string
	Comment        string
	WouldRecommend bool
}

type UpdateCommand struct {
	Rating         *int
	Comment        *string
	WouldRecommend *bool
}

// NewestFirst orders feedback by creation time, most recent first.
func NewestFirst(a, b *Feedback) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}
