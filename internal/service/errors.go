package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
	// Err optionally names the domain rule that failed.
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(fields ...string) error {
	return &ValidationError{Fields: fields}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Role      domain.Role
	DoctorID  *string
	IPAddress string
	RequestID string
}

// PatientID is the identifier appointments and feedback are keyed by.
func (a Actor) PatientID() string {
	return domain.NormalizeEmail(a.Email)
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// ManagesDoctor reports whether the actor is the doctor account for doctorID.
func (a Actor) ManagesDoctor(doctorID string) bool {
	return a.Role == domain.RoleDoctor && a.DoctorID != nil && *a.DoctorID == doctorID
}

type AuditEntry struct {
	UserID       string
	UserRole     string
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Changes      string
}

func (a Actor) audit(action domain.AuditAction, resourceType, resourceID, changes string) AuditEntry {
	return AuditEntry{
		UserID:       a.UserID.String(),
		UserRole:     string(a.Role),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    a.IPAddress,
		RequestID:    a.RequestID,
		Changes:      changes,
	}
}
