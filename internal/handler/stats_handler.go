package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-app/internal/models"
	"maintenance-app/internal/services"
)

type StatsHandler struct {
	requests services.RequestService
	stats    *services.StatsService
}

func NewStatsHandler(requests services.RequestService, stats *services.StatsService) *StatsHandler {
	return &StatsHandler{requests: requests, stats: stats}
}

// Dashboard returns the numbers for the caller's role-specific dashboard.
func (h *StatsHandler) Dashboard(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	all, err := h.requests.ListRequests(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}

	switch sess.Role {
	case models.RoleManager:
		c.JSON(http.StatusOK, h.stats.Overview(all))
	case models.RoleTechnician:
		c.JSON(http.StatusOK, h.stats.TechnicianOverview(all, sess.UserID))
	default:
		c.JSON(http.StatusOK, h.stats.RequesterOverview(all, sess.UserID))
	}
}

// Team returns the per-technician rollup for the manager team view.
func (h *StatsHandler) Team(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	all, err := h.requests.ListRequests(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"technicians": h.stats.TechnicianRollup(all),
		"overview":    h.stats.Overview(all),
	})
}
