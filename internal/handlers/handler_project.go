package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// projectHandler handles HTTP requests related to projects.
type projectHandler struct {
	projectService portssvc.ProjectSvcFacade
	expenseService portssvc.ExpenseSvcFacade
}

func newProjectHandler(ps portssvc.ProjectSvcFacade, es portssvc.ExpenseSvcFacade) *projectHandler {
	return &projectHandler{projectService: ps, expenseService: es}
}

// registerProjectRoutes registers routes related to projects.
func registerProjectRoutes(rg *gin.RouterGroup, projectService portssvc.ProjectSvcFacade, expenseService portssvc.ExpenseSvcFacade) {
	h := newProjectHandler(projectService, expenseService)

	projects := rg.Group("/projects")
	{
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/mine", h.listMyProjects)
		projects.GET("/:id", h.getProject)
		projects.PUT("/:id", h.updateProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.POST("/:id/confirm", h.confirmProject)
		projects.POST("/:id/audit", h.auditProject)
		projects.POST("/:id/completion", h.submitCompletionReport)
		projects.POST("/:id/completion/audit", h.auditCompletion)
		projects.GET("/:id/expenses", h.listProjectExpenses)
	}
}

func (h *projectHandler) createProject(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateProject", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *projectHandler) getProject(c *gin.Context) {
	project, err := h.projectService.GetProjectByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve project")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) listProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *projectHandler) listMyProjects(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	projects, err := h.projectService.ListProjectsByLeader(c.Request.Context(), actor.UserID)
	if err != nil {
		respondServiceError(c, err, "Failed to list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *projectHandler) updateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to update project")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) deleteProject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondServiceError(c, err, "Failed to delete project")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *projectHandler) confirmProject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	project, err := h.projectService.ConfirmProject(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondServiceError(c, err, "Failed to submit project for audit")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) auditProject(c *gin.Context) {
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

	project, err := h.projectService.AuditProject(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to audit project")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) submitCompletionReport(c *gin.Context) {
	var req dto.CompletionReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	project, err := h.projectService.SubmitCompletionReport(c.Request.Context(), c.Param("id"), req.ReportPath, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to submit completion report")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) auditCompletion(c *gin.Context) {
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

	project, err := h.projectService.AuditCompletion(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		respondServiceError(c, err, "Failed to review project completion")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) listProjectExpenses(c *gin.Context) {
	claims, err := h.expenseService.ListExpensesByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to list project expenses")
		return
	}
	c.JSON(http.StatusOK, claims)
}
