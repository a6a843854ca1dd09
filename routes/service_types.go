package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"septic-booking-server/models"
	"septic-booking-server/services"
)

func (h *handler) listServiceTypes(c *gin.Context) {
	var serviceTypes []models.ServiceType
	err := h.DB.WithContext(c.Request.Context()).
		Where("status = ?", models.ServiceTypeActive).
		Order("name").
		Find(&serviceTypes).Error
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Service types retrieved successfully", gin.H{"service_types": serviceTypes})
}

func (h *handler) listAllServiceTypes(c *gin.Context) {
	var serviceTypes []models.ServiceType
	if err := h.DB.WithContext(c.Request.Context()).Order("name").Find(&serviceTypes).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Service types retrieved successfully", gin.H{"service_types": serviceTypes})
}

func (h *handler) getServiceType(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	serviceType, ok := h.findServiceType(c, id)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, "Service type retrieved successfully", gin.H{"service_type": serviceType})
}

func (h *handler) createServiceType(c *gin.Context) {
	var req models.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, price and a positive duration are required")
		return
	}
	status, ok := serviceTypeStatus(c, req.Status)
	if !ok {
		return
	}

	serviceType := models.ServiceType{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Duration:    req.Duration,
		Status:      status,
		Images:      req.Images,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&serviceType).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Service type created successfully", gin.H{"service_type": serviceType})
}

// updateServiceType edits the catalog entry. Existing bookings keep the
// snapshot they were created with.
func (h *handler) updateServiceType(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req models.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, price and a positive duration are required")
		return
	}
	status, ok := serviceTypeStatus(c, req.Status)
	if !ok {
		return
	}

	serviceType, ok := h.findServiceType(c, id)
	if !ok {
		return
	}
	serviceType.Name = req.Name
	serviceType.Description = req.Description
	serviceType.Price = req.Price
	serviceType.Duration = req.Duration
	serviceType.Status = status
	serviceType.Images = req.Images

	if err := h.DB.WithContext(c.Request.Context()).Save(serviceType).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Service type updated successfully", gin.H{"service_type": serviceType})
}

func (h *handler) deleteServiceType(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	serviceType, ok := h.findServiceType(c, id)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(serviceType).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Service type deleted successfully", nil)
}

func (h *handler) findServiceType(c *gin.Context, id uint) (*models.ServiceType, bool) {
	var serviceType models.ServiceType
	if err := h.DB.WithContext(c.Request.Context()).First(&serviceType, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, h.Log, services.ErrServiceTypeNotFound)
			return nil, false
		}
		respondError(c, h.Log, err)
		return nil, false
	}
	return &serviceType, true
}

func serviceTypeStatus(c *gin.Context, status models.ServiceTypeStatus) (models.ServiceTypeStatus, bool) {
	switch status {
	case "":
		return models.ServiceTypeActive, true
	case models.ServiceTypeActive, models.ServiceTypeInactive:
		return status, true
	}
	badRequest(c, "status must be active or inactive")
	return "", false
}
