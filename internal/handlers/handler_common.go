package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// actorFromContext builds the acting identity from the authenticated request.
func actorFromContext(c *gin.Context) (portssvc.Actor, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return portssvc.Actor{}, false
	}
	return portssvc.Actor{UserID: userID, UserName: middleware.GetUserNameFromContext(c)}, true
}

// respondServiceError maps workflow errors onto HTTP status codes. Budget
// rejections surface the category and remaining amount so clients can show a
// precise message.
func respondServiceError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var budgetErr *apperrors.InsufficientBudgetError
	switch {
	case errors.As(err, &budgetErr):
		logger.Warn("Budget check rejected request", "error", err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     budgetErr.Error(),
			"category":  budgetErr.Category,
			"remaining": budgetErr.Remaining.String(),
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Validation error", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden operation", "error", err.Error())
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidStateTransition):
		logger.Warn("Invalid state transition", "error", err.Error())
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
