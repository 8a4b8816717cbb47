package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sahanr/finance-tracker/internal/services"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"go.uber.org/zap"
)

type AuthHandler struct {
	logger  *zap.Logger
	service services.AuthService
}

func NewAuthHandler(logger *zap.Logger, svc services.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, service: svc}
}

// RegisterRoutes registers the public auth routes on the provided group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
}

func (h *AuthHandler) Register(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	var req views.RegisterRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.Register(c.Request.Context(), traceID, req)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	var req views.LoginRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), traceID, req)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
