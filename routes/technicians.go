package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"septic-booking-server/models"
)

type technicianStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handler) listTechnicians(c *gin.Context) {
	technicians, err := h.Tracker.List(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Technicians retrieved successfully", gin.H{"technicians": technicians})
}

func (h *handler) setTechnicianStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req technicianStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	status, valid := models.ParseAvailabilityStatus(req.Status)
	if !valid {
		badRequest(c, "status must be available or unavailable")
		return
	}

	row, err := h.Tracker.Set(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Technician status updated", gin.H{"technician_status": row})
}
