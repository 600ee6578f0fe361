package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-app/internal/models"
	"maintenance-app/internal/services"
)

type AuthHandler struct {
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.auth.Register(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SwitchRole changes the caller's single active role and hands back a token
// for the new session.
func (h *AuthHandler) SwitchRole(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var body struct {
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.auth.SwitchRole(c.Request.Context(), sess, body.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	profile, err := h.auth.Profile(c.Request.Context(), sess.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes the display name. Email is immutable after signup.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var body struct {
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	profile, err := h.auth.UpdateFullName(c.Request.Context(), sess, body.FullName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
