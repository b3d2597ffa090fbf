package v1

import (
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/gin-gonic/gin"
)

type submitFeedbackRequest struct {
	AppointmentID  string `json:"appointment_id"`
	Rating         int    `json:"rating"`
	Category       string `json:"category"`
	Comment        string `json:"comment"`
	WouldRecommend bool   `json:"would_recommend"`
}

type updateFeedbackRequest struct {
	Rating         *int    `json:"rating"`
	Comment        *string `json:"comment"`
	WouldRecommend *bool   `json:"would_recommend"`
}

func (h *Handler) submitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	who := actor(c)
	f, err := h.svc.Feedback.Submit(c.Request.Context(), &feedback.SubmitCommand{
		AppointmentID:  req.AppointmentID,
		PatientID:      who.PatientID(),
		Rating:         req.Rating,
		Category:       req.Category,
		Comment:        req.Comment,
		WouldRecommend: req.WouldRecommend,
	}, who)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, f, "feedback submitted")
}

func (h *Handler) feedbackHistory(c *gin.Context) {
	list, err := h.svc.Feedback.History(c.Request.Context(), actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *Handler) updateFeedback(c *gin.Context) {
	id, ok := parseUUID(c, "id", feedback.ErrFeedbackNotFound)
	if !ok {
		return
	}

	var req updateFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.svc.Feedback.Update(c.Request.Context(), id, actor(c), &feedback.UpdateCommand{
		Rating:         req.Rating,
		Comment:        req.Comment,
		WouldRecommend: req.WouldRecommend,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondMessage(c, f, "feedback updated")
}
