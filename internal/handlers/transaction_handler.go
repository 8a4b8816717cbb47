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

type TransactionHandler struct {
	logger    *zap.Logger
	ledger    services.LedgerService
	dashboard services.DashboardService
}

func NewTransactionHandler(logger *zap.Logger, ledger services.LedgerService, dashboard services.DashboardService) *TransactionHandler {
	return &TransactionHandler{logger: logger, ledger: ledger, dashboard: dashboard}
}

// RegisterRoutes registers transaction routes on the provided authenticated group.
func (h *TransactionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions", h.ListTransactions)
	r.POST("/transactions", h.CreateTransaction)
	r.DELETE("/transactions/:id", h.DeleteTransaction)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}

	var accountID *uuid.UUID
	if raw := c.Query("account_id"); !utils.IsEmpty(raw) {
		id, err := uuid.Parse(raw)
		if err != nil {
			renderError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid account_id filter", err))
			return
		}
		accountID = &id
	}

	transactions, err := h.dashboard.ListTransactions(c.Request.Context(), traceID, userID, accountID)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"transactions": transactions,
		},
	})
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}

	var req views.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	txnID, err := h.ledger.CreateTransaction(c.Request.Context(), traceID, userID, req)
	if err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"message":        "Transaction created successfully",
			"transaction_id": txnID.String(),
		},
	})
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	traceID, userID, ok := requestScope(c, h.logger)
	if !ok {
		return
	}
	txnID, ok := pathID(c, h.logger, traceID)
	if !ok {
		return
	}

	if err := h.ledger.DeleteTransaction(c.Request.Context(), traceID, userID, txnID); err != nil {
		renderError(c, h.logger, traceID, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: map[string]interface{}{
			"message": "Transaction deleted successfully",
		},
	})
}
