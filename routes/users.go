package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"septic-booking-server/models"
	"septic-booking-server/services"
)

type createUserRequest struct {
	FullName    string          `json:"full_name" binding:"required"`
	Email       string          `json:"email" binding:"required"`
	Password    string          `json:"password" binding:"required"`
	PhoneNumber string          `json:"phone_number"`
	Address     string          `json:"address"`
	Role        models.UserRole `json:"role"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Users retrieved successfully", gin.H{"users": users})
}

func (h *handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "full_name, email and password are required")
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), services.NewUser{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusCreated, "User created successfully", gin.H{"user": user})
}

func (h *handler) setUserActive(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "is_active is required")
		return
	}

	user, err := h.Users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	message := "User deactivated"
	if user.IsActive {
		message = "User activated"
	}
	respondOK(c, http.StatusOK, message, gin.H{"user": user})
}
