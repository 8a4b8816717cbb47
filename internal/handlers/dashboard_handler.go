package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sahanr/finance-tracker/internal/services"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	logger  *zap.Logger
	service services.DashboardService
}

func NewDashboardHandler(logger *zap.Logger, svc services.DashboardService) *DashboardHandler {
	return &DashboardHandler{logger: logger, service: svc}
}

func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.Dashboard(c.Request.Context(), traceID, userID)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
