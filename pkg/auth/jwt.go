// Package auth issues and checks the bearer tokens carried by patients,
// doctors and admins.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

// The token kind travels as the audience, so a refresh token is rejected
// wherever an access token is expected and vice versa.
const (
	accessAudience  = "medicare:access"
	refreshAudience = "medicare:refresh"
)

const clockSkew = 10 * time.Second

// sessionClaims is the signed payload. Subject holds the account id.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email"`
	Name     string      `json:"name,omitempty"`
	Role     domain.Role `json:"role"`
	DoctorID *string     `json:"doctor_id,omitempty"`
}

type JWTManager struct {
	cfg     config.JWTConfig
	key     []byte
	access  *jwt.Parser
	refresh *jwt.Parser
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	parser := func(audience string) *jwt.Parser {
		return jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		)
	}
	return &JWTManager{
		cfg:     cfg,
		key:     []byte(cfg.Secret),
		access:  parser(accessAudience),
		refresh: parser(refreshAudience),
	}
}

// GenerateTokenPair signs a fresh access and refresh token for one login.
func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	now := time.Now()

	access, err := m.issue(claims, accessAudience, now, m.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := m.issue(claims, refreshAudience, now, m.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(m.cfg.AccessTokenTTL),
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.parse(m.access, token)
}

func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.parse(m.refresh, token)
}

func (m *JWTManager) issue(c *domain.Claims, audience string, now time.Time, ttl time.Duration) (string, error) {
	payload := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   c.UserID.String(),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
	if c.Role == domain.RoleDoctor {
		payload.DoctorID = c.DoctorID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.key)
}

func (m *JWTManager) parse(p *jwt.Parser, raw string) (*domain.Claims, error) {
	var payload sessionClaims
	_, err := p.ParseWithClaims(raw, &payload, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, ErrTokenTypeMismatch
	default:
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(payload.Subject)
	if err != nil || !payload.Role.IsValid() {
		return nil, ErrTokenInvalid
	}

	return &domain.Claims{
		UserID:   userID,
		Email:    payload.Email,
		Name:     payload.Name,
		Role:     payload.Role,
		DoctorID: payload.DoctorID,
	}, nil
}
