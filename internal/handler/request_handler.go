package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"maintenance-app/internal/models"
	"maintenance-app/internal/services"
	"maintenance-app/internal/utils"
)

type RequestHandler struct {
	service services.RequestService
}

func NewRequestHandler(service services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// statusFor maps the service error taxonomy onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func session(c *gin.Context) (models.Session, bool) {
	sess, ok := utils.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
	}
	return sess, ok
}

func requestID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var draft models.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.service.CreateRequest(c.Request.Context(), sess, draft)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *RequestHandler) GetAllRequests(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	requests, err := h.service.ListRequests(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) GetMyRequests(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	requests, err := h.service.MyRequests(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}
	result, err := h.service.AcceptRequest(c.Request.Context(), sess, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}
	var patch models.RequestPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.service.UpdateRequest(c.Request.Context(), sess, id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
