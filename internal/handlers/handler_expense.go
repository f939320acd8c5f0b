package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// expenseHandler handles HTTP requests related to expense claims.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
}

func newExpenseHandler(es portssvc.ExpenseSvcFacade) *expenseHandler {
	return &expenseHandler{expenseService: es}
}

// registerExpenseRoutes registers routes related to expense claims.
func registerExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade) {
	h := newExpenseHandler(expenseService)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("", h.listExpenses)
		expenses.GET("/mine", h.listMyExpenses)
		expenses.GET("/:id", h.getExpense)
		expenses.PUT("/:id", h.updateExpense)
		expenses.DELETE("/:id", h.deleteExpense)
		expenses.POST("/:id/audit", h.auditExpense)
		expenses.POST("/:id/pay", h.payExpense)
		expenses.POST("/:id/receipts", h.submitReceipt)
		expenses.POST("/:id/receipts/audit", h.auditReceipt)
		expenses.POST("/:id/repay", h.repayExpense)
	}
}

func (h *expenseHandler) createExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.CreateExpense(c.Request.Context(), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to create expense claim")
		return
	}
	c.JSON(http.StatusCreated, claim)
}

func (h *expenseHandler) getExpense(c *gin.Context) {
	claim, err := h.expenseService.GetExpenseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve expense claim")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) listExpenses(c *gin.Context) {
	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	claims, err := h.expenseService.ListExpenses(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err, "Failed to list expense claims")
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *expenseHandler) listMyExpenses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	claims, err := h.expenseService.ListExpensesByUser(c.Request.Context(), actor.UserID, params)
	if err != nil {
		respondServiceError(c, err, "Failed to list expense claims")
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *expenseHandler) updateExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.UpdateExpense(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to update expense claim")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) deleteExpense(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondServiceError(c, err, "Failed to delete expense claim")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *expenseHandler) auditExpense(c *gin.Context) {
	var req dto.AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.AuditExpense(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to audit expense claim")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) payExpense(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.PayExpense(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondServiceError(c, err, "Failed to pay expense claim")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) submitReceipt(c *gin.Context) {
	var req dto.SubmitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.SubmitReceipt(c.Request.Context(), c.Param("id"), req.Attachments, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to submit receipts")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) auditReceipt(c *gin.Context) {
	var req dto.AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.AuditReceipt(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to audit receipts")
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *expenseHandler) repayExpense(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.expenseService.RepayExpense(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondServiceError(c, err, "Failed to repay expense claim")
		return
	}
	c.JSON(http.StatusOK, claim)
}
