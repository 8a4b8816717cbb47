package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sahanr/finance-tracker/internal/services"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"go.uber.org/zap"
)

type AccountHandler struct {
	logger  *zap.Logger
	service services.AccountService
}

func NewAccountHandler(logger *zap.Logger, svc services.AccountService) *AccountHandler {
	return &AccountHandler{logger: logger, service: svc}
}

// RegisterRoutes registers account routes on the provided authenticated group.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accounts", h.ListAccounts)
	r.POST("/accounts", h.CreateAccount)
	r.PUT("/accounts/:id", h.RenameAccount)
	r.DELETE("/accounts/:id", h.DeleteAccount)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), traceID, userID)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"accounts": accounts,
		},
	})
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}

	var req views.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	accountID, err := h.service.CreateAccount(c.Request.Context(), traceID, userID, req)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"account_id": accountID.String(),
		},
	})
}

func (h *AccountHandler) RenameAccount(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}
	accountID, ok := pathID(c, h.logger, traceID)
	if !ok {
		return
	}

	var req views.RenameAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := h.service.RenameAccount(c.Request.Context(), traceID, userID, accountID, req); err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"message": "Account updated successfully",
		},
	})
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}
	accountID, ok := pathID(c, h.logger, traceID)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), traceID, userID, accountID); err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"message": "Account deleted successfully",
		},
	})
}

// requestScope pulls the trace id and authenticated user id out of the gin
// context; both are set by middleware on every authenticated route.
func requestScope(c *gin.Context, logger *zap.Logger) (string, uuid.UUID, bool) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		renderError(c, logger, traceID, err)
		return "", uuid.Nil, false
	}
	userID, err := utils.GetUserID(c)
	if err != nil {
		renderError(c, logger, traceID, err)
		return "", uuid.Nil, false
	}
	return traceID, userID, true
}

// pathID parses the :id path parameter. An unparseable id behaves like a
// missing record, matching the store's scoping semantics.
func pathID(c *gin.Context, logger *zap.Logger, traceID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		renderError(c, logger, traceID, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "record not found", err))
		return uuid.Nil, false
	}
	return id, true
}
