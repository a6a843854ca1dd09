package routes

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"septic-booking-server/middleware"
	"septic-booking-server/models"
	"septic-booking-server/services"
)

const maxProofBytes = 5 << 20

// validateImageFile validates extension and size
func validateImageFile(h *multipart.FileHeader) bool {
	if h == nil || h.Size <= 0 || h.Size > maxProofBytes {
		return false
	}
	switch strings.ToLower(filepath.Ext(h.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

func (h *handler) availableTime(c *gin.Context) {
	date := c.Query("date")
	slots, err := h.Slots.AvailableSlots(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Available time slots retrieved successfully", gin.H{
		"date":            date,
		"available_slots": slots,
	})
}

func (h *handler) createBooking(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data")
		return
	}

	booking, err := h.Bookings.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Booking created successfully", gin.H{"booking": booking})
}

func (h *handler) myBookings(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	bookings, err := h.Bookings.ListForCustomer(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Bookings retrieved successfully", gin.H{"bookings": bookings})
}

func (h *handler) technicianBookings(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	bookings, err := h.Bookings.ListForTechnician(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Assigned bookings retrieved successfully", gin.H{"bookings": bookings})
}

func (h *handler) listBookings(c *gin.Context) {
	bookings, err := h.Bookings.List(c.Request.Context(), services.BookingFilter{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Bookings retrieved successfully", gin.H{"bookings": bookings})
}

func (h *handler) getBooking(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	booking, err := h.Bookings.Get(c.Request.Context(), id, user)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Booking retrieved successfully", gin.H{"booking": booking})
}

func (h *handler) exportBookings(c *gin.Context) {
	bookings, err := h.Bookings.List(c.Request.Context(), services.BookingFilter{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	var buf bytes.Buffer
	if err := h.Exporter.Write(&buf, bookings); err != nil {
		respondError(c, h.Log, fmt.Errorf("%w: export bookings: %v", services.ErrInternal, err))
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *handler) assignTechnician(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req models.AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "technician_id is required")
		return
	}

	booking, err := h.Bookings.Assign(c.Request.Context(), id, req.TechnicianID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Technician assigned successfully", gin.H{"booking": booking})
}

func (h *handler) technicianRespond(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	var req models.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}

	booking, err := h.Bookings.Respond(c.Request.Context(), id, user.ID, req.Action, req.Reason)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	message := "Booking accepted"
	if req.Action == services.ActionDecline {
		message = "Booking declined"
	}
	respondOK(c, http.StatusOK, message, gin.H{"booking": booking})
}

func (h *handler) technicianUpdate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	booking, err := h.Bookings.UpdateStatus(c.Request.Context(), id, user.ID, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Booking status updated", gin.H{"booking": booking})
}

func (h *handler) technicianChangeService(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	var req models.ChangeServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "service_type_id is required")
		return
	}

	booking, err := h.Bookings.ChangeServiceType(c.Request.Context(), id, user.ID, req.ServiceTypeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Service type updated", gin.H{"booking": booking})
}

func (h *handler) technicianProof(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	var upload *services.ProofUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxProofBytes * 2); err != nil {
			badRequest(c, "Invalid form data")
			return
		}
		header, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			badRequest(c, "Invalid form data")
			return
		default:
			if !validateImageFile(header) {
				badRequest(c, "Proof must be a jpg, png or webp image up to 5MB")
				return
			}
			file, err := header.Open()
			if err != nil {
				badRequest(c, "Could not read uploaded image")
				return
			}
			defer file.Close()
			upload = &services.ProofUpload{Filename: header.Filename, Content: file}
		}
	}

	booking, err := h.Bookings.UploadProof(c.Request.Context(), id, user.ID, upload, c.PostForm("receipt_number"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Proof uploaded successfully", gin.H{"booking": booking})
}

func (h *handler) technicianCancel(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	var req models.CancelRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := h.Bookings.TechnicianCancel(c.Request.Context(), id, user.ID, req.Reason)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Booking cancelled", gin.H{"booking": booking})
}

func (h *handler) customerCancel(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	booking, err := h.Bookings.CustomerCancel(c.Request.Context(), id, user.ID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Booking cancelled successfully", gin.H{"booking": booking})
}

func (h *handler) adminSetStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req models.AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	booking, err := h.Bookings.SetStatus(c.Request.Context(), id, req.Status, req.CancelReason)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Booking updated successfully", gin.H{"booking": booking})
}

func (h *handler) recordPayment(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payment_status is required")
		return
	}

	booking, err := h.Bookings.RecordPayment(c.Request.Context(), id, req.PaymentStatus, req.AmountPaid)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Payment recorded", gin.H{"booking": booking})
}
