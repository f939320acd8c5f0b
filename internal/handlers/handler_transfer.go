package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// transferHandler handles HTTP requests for fund transfers and fund arrivals.
type transferHandler struct {
	transferService portssvc.TransferSvcFacade
	arrivalService  portssvc.FundArrivalSvcFacade
}

func newTransferHandler(ts portssvc.TransferSvcFacade, as portssvc.FundArrivalSvcFacade) *transferHandler {
	return &transferHandler{transferService: ts, arrivalService: as}
}

// registerTransferRoutes registers routes for fund transfers and arrivals.
func registerTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvcFacade, arrivalService portssvc.FundArrivalSvcFacade) {
	h := newTransferHandler(transferService, arrivalService)

	transfers := rg.Group("/transfers")
	{
		transfers.POST("", h.createTransfer)
		transfers.GET("", h.listTransfers)
		transfers.GET("/mine", h.listMyTransfers)
		transfers.GET("/:id", h.getTransfer)
		transfers.PUT("/:id", h.updateTransfer)
		transfers.DELETE("/:id", h.deleteTransfer)
		transfers.POST("/:id/audit", h.auditTransfer)
	}

	arrivals := rg.Group("/fund-arrivals")
	{
		arrivals.POST("", h.createFundArrival)
		arrivals.GET("/:id", h.getFundArrival)
		arrivals.DELETE("/:id", h.deleteFundArrival)
		arrivals.POST("/:id/confirm", h.confirmFundArrival)
	}
	rg.GET("/projects/:id/fund-arrivals", h.listProjectFundArrivals)
}

func (h *transferHandler) createTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transfer, err := h.transferService.CreateTransfer(c.Request.Context(), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to create transfer")
		return
	}
	c.JSON(http.StatusCreated, transfer)
}

func (h *transferHandler) getTransfer(c *gin.Context) {
	transfer, err := h.transferService.GetTransferByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve transfer")
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func (h *transferHandler) listTransfers(c *gin.Context) {
	var params dto.ListTransfersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	transfers, err := h.transferService.ListTransfers(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err, "Failed to list transfers")
		return
	}
	c.JSON(http.StatusOK, transfers)
}

func (h *transferHandler) listMyTransfers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListTransfersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	transfers, err := h.transferService.ListTransfersByUser(c.Request.Context(), actor.UserID, params)
	if err != nil {
		respondServiceError(c, err, "Failed to list transfers")
		return
	}
	c.JSON(http.StatusOK, transfers)
}

func (h *transferHandler) updateTransfer(c *gin.Context) {
	var req dto.UpdateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transfer, err := h.transferService.UpdateTransfer(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to update transfer")
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func (h *transferHandler) deleteTransfer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.transferService.DeleteTransfer(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondServiceError(c, err, "Failed to delete transfer")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *transferHandler) auditTransfer(c *gin.Context) {
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

	transfer, err := h.transferService.AuditTransfer(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to audit transfer")
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func (h *transferHandler) createFundArrival(c *gin.Context) {
	var req dto.CreateFundArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	arrival, err := h.arrivalService.CreateFundArrival(c.Request.Context(), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to record fund arrival")
		return
	}
	c.JSON(http.StatusCreated, arrival)
}

func (h *transferHandler) getFundArrival(c *gin.Context) {
	arrival, err := h.arrivalService.GetFundArrivalByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve fund arrival")
		return
	}
	c.JSON(http.StatusOK, arrival)
}

func (h *transferHandler) deleteFundArrival(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.arrivalService.DeleteFundArrival(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondServiceError(c, err, "Failed to delete fund arrival")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *transferHandler) confirmFundArrival(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	arrival, err := h.arrivalService.ConfirmFundArrival(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondServiceError(c, err, "Failed to confirm fund arrival")
		return
	}
	c.JSON(http.StatusOK, arrival)
}

func (h *transferHandler) listProjectFundArrivals(c *gin.Context) {
	resp, err := h.arrivalService.ListFundArrivalsByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to list fund arrivals")
		return
	}
	c.JSON(http.StatusOK, resp)
}
