package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("a user with this email already exists")
)

const (
	MaxFailedLoginAttempts = 5
	LoginLockDuration      = 15 * time.Minute
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Email        string `json:"email" gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"password_hash" gorm:"column:password_hash;type:varchar(255);not null"`
	FirstName    string `json:"first_name" gorm:"column:first_name;type:varchar(100);not null"`
	LastName     string `json:"last_name" gorm:"column:last_name;type:varchar(100);not null"`
	Mobile       string `json:"mobile" gorm:"column:mobile;type:varchar(20)"`
	Role         Role   `json:"role" gorm:"column:role;type:varchar(30);not null;index"`

	// For doctor accounts, links to the directory entry they manage.
	DoctorID *string `json:"doctor_id,omitempty" gorm:"column:doctor_id;type:varchar(64);index"`

	IsActive            bool       `json:"is_active" gorm:"column:is_active;default:true;index"`
	FailedLoginAttempts int        `json:"failed_login_attempts" gorm:"column:failed_login_attempts;default:0"`
	LockedUntil         *time.Time `json:"locked_until,omitempty" gorm:"column:locked_until"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// RecordLogin updates the lockout bookkeeping after a login attempt.
func (u *User) RecordLogin(success bool, now time.Time) {
	u.UpdatedAt = now
	if success {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
		return
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLoginAttempts {
		until := now.Add(LoginLockDuration)
		u.LockedUntil = &until
		u.FailedLoginAttempts = 0
	}
}

// NormalizeEmail is the canonical form used for lookups and patient ids.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OccurredAt time.Time `json:"occurred_at" gorm:"autoCreateTime;index"`

	// Who
	UserID    string `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;index"`
	UserRole  Role   `json:"user_role" gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string `json:"ip_address,omitempty" gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `json:"action" gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `json:"resource_type" gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `json:"resource_id,omitempty" gorm:"column:resource_id;type:varchar(64);index"`

	RequestID string `json:"request_id,omitempty" gorm:"column:request_id;type:varchar(64);index"`
	Changes   string `json:"changes,omitempty" gorm:"column:changes;type:text"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID   uuid.UUID `json:"sub"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	DoctorID *string   `json:"doctor_id,omitempty"`
}

// StorageError reports a failed read or write of a persisted collection.
// Callers may retry; the collection itself is never left half-written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
