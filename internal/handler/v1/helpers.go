package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/lock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data, Message: message})
}

func respondCreated(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data, Message: message})
}

func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, feedback.ErrFeedbackNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrAppointmentConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "SLOT_TAKEN"})

	case errors.Is(err, feedback.ErrFeedbackExists),
		errors.Is(err, domain.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrInvalidStatusTransition),
		errors.Is(err, feedback.ErrNotCompleted):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INVALID_STATE"})

	case errors.Is(err, appointment.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ACTION"})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "ACCOUNT_INACTIVE"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	case errors.Is(err, lock.ErrLockTimeout):
		h.log.Warn("lock wait timed out", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "slot is busy, try again", Code: "LOCK_TIMEOUT"})

	case isStorageError(err):
		h.log.Error("storage failure", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable", Code: "STORAGE"})

	default:
		h.log.Error("unhandled service error", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func isStorageError(err error) bool {
	var se *domain.StorageError
	return errors.As(err, &se)
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

// parseUUID reports a malformed id as notFound; no such resource can exist.
func parseUUID(c *gin.Context, param string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// actor builds the service caller from the authenticated claims.
func actor(c *gin.Context) service.Actor {
	a := service.Actor{
		IPAddress: c.ClientIP(),
		RequestID: middleware.GetRequestID(c),
	}
	if claims, ok := middleware.GetClaims(c); ok {
		a.UserID = claims.UserID
		a.Email = claims.Email
		a.Name = claims.Name
		a.Role = claims.Role
		a.DoctorID = claims.DoctorID
	}
	return a
}
