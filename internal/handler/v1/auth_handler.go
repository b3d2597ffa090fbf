package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Password  string `json:"password"`
	DoctorID  string `json:"doctor_id"`
}

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Mobile    *string `json:"mobile"`
}

// userView hides the credential fields of domain.User.
type userView struct {
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Mobile    string  `json:"mobile"`
	Role      string  `json:"role"`
	DoctorID  *string `json:"doctor_id,omitempty"`
}

func viewOf(u *domain.User) userView {
	return userView{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Mobile:    u.Mobile,
		Role:      string(u.Role),
		DoctorID:  u.DoctorID,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RolePatient
	}

	u, err := h.svc.Auth.Register(c.Request.Context(), &service.RegisterCommand{
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  req.Password,
		DoctorID:  req.DoctorID,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, viewOf(u), "account created")
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Auth.Login(c.Request.Context(), domain.Role(req.Role), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.svc.Auth.Profile(c.Request.Context(), actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, viewOf(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.svc.Auth.UpdateProfile(c.Request.Context(), actor(c), &service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Mobile:    req.Mobile,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondMessage(c, viewOf(u), "profile updated")
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.Auth.ChangePassword(c.Request.Context(), actor(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
