package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"septic-booking-server/middleware"
	"septic-booking-server/models"
	"septic-booking-server/services"
)

type registerRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

const refreshCookieSuffix = "_refresh"

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "full_name, email and password are required")
		return
	}

	user, err := h.Users.Register(c.Request.Context(), services.NewUser{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	h.issueSession(c, http.StatusCreated, "Account created successfully", user)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	h.issueSession(c, http.StatusOK, "Login successful", user)
}

func (h *handler) refresh(c *gin.Context) {
	raw := h.refreshTokenFrom(c)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Refresh token required"})
		return
	}

	pair, user, err := h.JWT.Refresh(c.Request.Context(), raw, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	h.setSessionCookies(c, pair)
	respondOK(c, http.StatusOK, "Token refreshed", gin.H{"user": user, "tokens": pair, "token": pair.AccessToken})
}

func (h *handler) logout(c *gin.Context) {
	if raw := h.refreshTokenFrom(c); raw != "" {
		if err := h.JWT.RevokeRefreshToken(c.Request.Context(), raw); err != nil {
			respondError(c, h.Log, err)
			return
		}
	}

	name := h.Config.JWT.CookieName
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookies(), true)
	c.SetCookie(name+refreshCookieSuffix, "", -1, "/auth", "", h.secureCookies(), true)
	respondOK(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *handler) me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	respondOK(c, http.StatusOK, "User retrieved successfully", gin.H{"user": user})
}

func (h *handler) issueSession(c *gin.Context, status int, message string, user *models.User) {
	pair, err := h.JWT.GenerateTokenPair(c.Request.Context(), user, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	h.setSessionCookies(c, pair)
	respondOK(c, status, message, gin.H{"user": user, "tokens": pair, "token": pair.AccessToken})
}

// setSessionCookies stores the access token and refresh token as HTTP-only
// cookies so browser clients need not keep them in script-visible storage.
func (h *handler) setSessionCookies(c *gin.Context, pair *services.TokenPair) {
	name := h.Config.JWT.CookieName
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, pair.AccessToken, int(pair.ExpiresIn), "/", "", h.secureCookies(), true)
	c.SetCookie(name+refreshCookieSuffix, pair.RefreshToken, h.Config.JWT.RefreshDays*24*3600, "/auth", "", h.secureCookies(), true)
}

func (h *handler) refreshTokenFrom(c *gin.Context) string {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(h.Config.JWT.CookieName + refreshCookieSuffix); err == nil {
		return cookie
	}
	return ""
}

func (h *handler) secureCookies() bool {
	return h.Config.Server.GinMode == gin.ReleaseMode
}
