package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"septic-booking-server/middleware"
	"septic-booking-server/models"
)

func (h *handler) getPage(c *gin.Context) {
	slug := c.Param("slug")
	if !models.IsKnownPageSlug(slug) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Page not found"})
		return
	}

	var page models.Page
	err := h.DB.WithContext(c.Request.Context()).Where("slug = ?", slug).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Page not found"})
		return
	}
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Page retrieved successfully", gin.H{"page": page})
}

func (h *handler) upsertPage(c *gin.Context) {
	slug := c.Param("slug")
	if !models.IsKnownPageSlug(slug) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Page not found"})
		return
	}

	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title is required")
		return
	}
	user, _ := middleware.CurrentUser(c)

	db := h.DB.WithContext(c.Request.Context())
	var page models.Page
	if err := db.Where(models.Page{Slug: slug}).FirstOrInit(&page).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	page.Title = req.Title
	page.Content = req.Content
	page.Items = req.Items
	page.UpdatedBy = &user.ID

	if err := db.Save(&page).Error; err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Page saved successfully", gin.H{"page": page})
}
