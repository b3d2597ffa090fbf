package v1

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) departments(c *gin.Context) {
	depts, err := h.svc.Directory.Departments(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, depts)
}

func (h *Handler) searchDoctors(c *gin.Context) {
	doctors, err := h.svc.Directory.Search(c.Request.Context(), c.Query("department"), c.Query("specialty"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, doctors)
}

func (h *Handler) getDoctor(c *gin.Context) {
	d, err := h.svc.Directory.Doctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *Handler) daySlots(c *gin.Context) {
	day, err := h.svc.Availability.DaySlots(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, day)
}

func (h *Handler) doctorSchedule(c *gin.Context) {
	list, err := h.svc.Bookings.ListForDoctor(c.Request.Context(), actor(c), c.Param("id"), c.Query("date"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}
