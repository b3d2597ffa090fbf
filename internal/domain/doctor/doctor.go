package doctor

import (
	"iter"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
)

const DefaultSlotDuration = 30

// Window is a doctor's working hours for one weekday. A nil Start or End
// means the window is incomplete and the doctor is not bookable that day.
type Window struct {
	Start *domain.Clock `json:"start" yaml:"start"`
	End   *domain.Clock `json:"end" yaml:"end"`
}

func (w *Window) complete() bool {
	return w != nil && w.Start != nil && w.End != nil
}

// WorkingHours maps a weekday name to at most one window. A missing or null
// entry means unavailable.
type WorkingHours map[domain.Weekday]*Window

type Doctor struct {
	ID              string       `json:"id" yaml:"id" gorm:"type:varchar(64);primaryKey"`
	CreatedAt       time.Time    `json:"created_at" yaml:"-" gorm:"autoCreateTime"`
	UpdatedAt       time.Time    `json:"updated_at" yaml:"-" gorm:"autoUpdateTime"`
	FirstName       string       `json:"first_name" yaml:"first_name" gorm:"column:first_name;type:varchar(100);not null"`
	LastName        string       `json:"last_name" yaml:"last_name" gorm:"column:last_name;type:varchar(100);not null"`
	Email           string       `json:"email,omitempty" yaml:"email" gorm:"column:email;type:varchar(255);index"`
	Department      string       `json:"department" yaml:"department" gorm:"column:department;type:varchar(100);index"`
	Specialty       string       `json:"specialty" yaml:"specialty" gorm:"column:specialty;type:varchar(100);index"`
	Location        string       `json:"location,omitempty" yaml:"location" gorm:"column:location;type:varchar(255)"`
	ConsultationFee float64      `json:"consultation_fee" yaml:"consultation_fee" gorm:"column:consultation_fee"`
	WorkingHours    WorkingHours `json:"working_hours" yaml:"working_hours" gorm:"column:working_hours;type:jsonb;serializer:json"`
	// Minutes; zero means DefaultSlotDuration.
	SlotDuration int `json:"slot_duration,omitempty" yaml:"slot_duration" gorm:"column:slot_duration;default:30"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Doctor) SlotLength() time.Duration {
	if d.SlotDuration <= 0 {
		return DefaultSlotDuration * time.Minute
	}
	return time.Duration(d.SlotDuration) * time.Minute
}

// WindowOn returns the complete window for the weekday of date, or nil.
func (d *Doctor) WindowOn(date domain.Date) *Window {
	w := d.WorkingHours[date.Weekday()]
	if !w.complete() {
		return nil
	}
	return w
}

type Slot struct {
	Time     domain.Clock  `json:"time"`
	Duration time.Duration `json:"-"`
}

// ResolveSlots yields the doctor's slot start times on date in ascending order.
// The last slot must end no later than the window end; a trailing partial slot
// is dropped. The sequence is empty when the doctor does not work that day.
func ResolveSlots(d *Doctor, date domain.Date) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		w := d.WindowOn(date)
		if w == nil {
			return
		}
		step := d.SlotLength()
		for start := *w.Start; start.Add(step) <= *w.End; start = start.Add(step) {
			if !yield(Slot{Time: start, Duration: step}) {
				return
			}
		}
	}
}

// HasSlot reports whether t is one of the resolved slot starts on date.
func HasSlot(d *Doctor, date domain.Date, t domain.Clock) bool {
	for s := range ResolveSlots(d, date) {
		if s.Time == t {
			return true
		}
		if s.Time > t {
			break
		}
	}
	return false
}

type Department struct {
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
}

type SearchQuery struct {
	Department string
	Specialty  string
}

// Normalized trims both filters and blanks any that is "all".
func (q SearchQuery) Normalized() SearchQuery {
	return SearchQuery{Department: normalizeFilter(q.Department), Specialty: normalizeFilter(q.Specialty)}
}

// Matches applies case-insensitive filters. Empty or "all" disables a filter.
func (q SearchQuery) Matches(d *Doctor) bool {
	q = q.Normalized()
	return matchFilter(q.Department, d.Department) && matchFilter(q.Specialty, d.Specialty)
}

func normalizeFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if strings.EqualFold(filter, "all") {
		return ""
	}
	return filter
}

func matchFilter(filter, value string) bool {
	return filter == "" || strings.EqualFold(filter, value)
}
