package v1

import (
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/gin-gonic/gin"
)

type bookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Notes    string `json:"notes"`
}

type updateAppointmentRequest struct {
	Action  string  `json:"action"`
	NewDate string  `json:"new_date"`
	NewTime string  `json:"new_time"`
	Notes   *string `json:"notes"`
}

func (h *Handler) bookAppointment(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	who := actor(c)
	a, err := h.svc.Bookings.Book(c.Request.Context(), &appointment.BookCommand{
		DoctorID:    req.DoctorID,
		PatientID:   who.PatientID(),
		PatientName: who.Name,
		Date:        req.Date,
		Time:        req.Time,
		Type:        req.Type,
		Notes:       req.Notes,
	}, who)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, a, "appointment booked")
}

func (h *Handler) listAppointments(c *gin.Context) {
	page, err := h.svc.Bookings.ListForPatient(
		c.Request.Context(),
		actor(c),
		c.Query("scope"),
		parseQueryInt(c, "page", 1),
		parseQueryInt(c, "page_size", 20),
	)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *Handler) getAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id", appointment.ErrAppointmentNotFound)
	if !ok {
		return
	}

	a, err := h.svc.Bookings.Get(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) updateAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id", appointment.ErrAppointmentNotFound)
	if !ok {
		return
	}

	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Bookings.Update(c.Request.Context(), id, actor(c), &appointment.UpdateCommand{
		Action:  req.Action,
		NewDate: req.NewDate,
		NewTime: req.NewTime,
		Notes:   req.Notes,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondMessage(c, a, "appointment "+string(appointment.ParseAction(req.Action))+" applied")
}

func (h *Handler) confirmAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id", appointment.ErrAppointmentNotFound)
	if !ok {
		return
	}

	a, err := h.svc.Bookings.Confirm(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) completeAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id", appointment.ErrAppointmentNotFound)
	if !ok {
		return
	}

	a, err := h.svc.Bookings.Complete(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}
