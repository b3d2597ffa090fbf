package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/auth"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

const minPasswordLength = 8

var validate = validator.New()

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) error
	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type RegisterCommand struct {
	Role      domain.Role
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
	DoctorID  string
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Mobile    *string
}

type AuthService struct {
	userRepo   UserRepository
	doctors    doctor.Repository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
	hashCost   int
}

func NewAuthService(userRepo UserRepository, doctors doctor.Repository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		doctors:    doctors,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		log:        log,
		hashCost:   bcrypt.DefaultCost,
	}
}

// Register creates a self-service patient or doctor account.
func (s *AuthService) Register(ctx context.Context, cmd *RegisterCommand) (*domain.User, error) {
	if cmd.Role != domain.RolePatient && cmd.Role != domain.RoleDoctor {
		return nil, invalid("role must be patient or doctor")
	}
	return s.CreateAccount(ctx, cmd)
}

// CreateAccount creates an account of any role. Admin accounts only come
// through here from the command line.
func (s *AuthService) CreateAccount(ctx context.Context, cmd *RegisterCommand) (*domain.User, error) {
	var errs []string
	if !cmd.Role.IsValid() {
		errs = append(errs, "role is invalid")
	}
	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if err := validate.Var(strings.TrimSpace(cmd.Email), "required,email"); err != nil {
		errs = append(errs, "email is invalid")
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if cmd.Role == domain.RoleDoctor && strings.TrimSpace(cmd.DoctorID) == "" {
		errs = append(errs, "doctor_id is required for doctor accounts")
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	var doctorID *string
	if cmd.Role == domain.RoleDoctor {
		d, err := s.doctors.GetByID(ctx, strings.TrimSpace(cmd.DoctorID))
		if err != nil {
			return nil, fmt.Errorf("linking doctor account: %w", err)
		}
		doctorID = &d.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        domain.NormalizeEmail(cmd.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		Mobile:       strings.TrimSpace(cmd.Mobile),
		Role:         cmd.Role,
		DoctorID:     doctorID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

// Login checks the credentials against the account registered for role.
func (s *AuthService) Login(ctx context.Context, role domain.Role, email, password, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		return nil, ErrInvalidCredentials
	}

	if role != "" && user.Role != role {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Record failed attempt; lock if threshold exceeded
		_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false)
		s.log.Warn("failed login attempt",
			zap.String("email", user.Email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, true)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID.String(),
		UserRole:     string(user.Role),
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate user is still active
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return invalid(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *AuthService) Profile(ctx context.Context, actor Actor) (*domain.User, error) {
	return s.userRepo.GetByEmail(ctx, actor.Email)
}

// UpdateProfile changes only the fields that are set.
func (s *AuthService) UpdateProfile(ctx context.Context, actor Actor, upd *ProfileUpdate) (*domain.User, error) {
	var errs []string
	if upd.FirstName != nil && strings.TrimSpace(*upd.FirstName) == "" {
		errs = append(errs, "first_name must not be empty")
	}
	if upd.LastName != nil && strings.TrimSpace(*upd.LastName) == "" {
		errs = append(errs, "last_name must not be empty")
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}

	u, err := s.userRepo.GetByEmail(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Mobile != nil {
		u.Mobile = strings.TrimSpace(*upd.Mobile)
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionUpdate, "user", u.ID.String(), ""))
	return u, nil
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.FullName(),
		Role:     u.Role,
		DoctorID: u.DoctorID,
	}
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
