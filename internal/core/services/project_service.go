package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

var (
	ErrProjectNotEditable = fmt.Errorf("%w: only planning projects can be modified", apperrors.ErrInvalidStateTransition)
	ErrNotProjectLeader   = fmt.Errorf("%w: only the project leader may perform this operation", apperrors.ErrForbidden)
	ErrAlreadySubmitted   = fmt.Errorf("%w: project has already been submitted for audit", apperrors.ErrInvalidStateTransition)
)

type projectService struct {
	projectRepo portsrepo.ProjectRepositoryFacade
	clock       portssvc.Clock
}

// NewProjectService creates a new project lifecycle service.
func NewProjectService(projectRepo portsrepo.ProjectRepositoryFacade, clock portssvc.Clock) portssvc.ProjectSvcFacade {
	return &projectService{projectRepo: projectRepo, clock: clock}
}

var _ portssvc.ProjectSvcFacade = (*projectService)(nil)

// CreateProject creates a project in planning with the creator as leader.
// The end date must be after the start date and the budget items must not
// exceed the total budget.
func (s *projectService) CreateProject(ctx context.Context, req dto.CreateProjectRequest, creator portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := validateProjectDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validateBudgetItems(req.BudgetItems, req.Budget); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	project := domain.Project{
		ProjectID:   uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    creator.UserID,
		LeaderName:  creator.UserName,
		Budget:      req.Budget,
		UsedBudget:  decimal.Zero,
		Status:      domain.ProjectPlanning,
		AuditStatus: domain.AuditNotSubmitted,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creator.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creator.UserID,
		},
	}
	project.BudgetItems = newBudgetItems(req.BudgetItems, project.ProjectID)

	if err := s.projectRepo.SaveProject(ctx, project); err != nil {
		logger.Error("Failed to save project", "error", err)
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	logger.Info("Project created", "project_id", project.ProjectID, "budget", project.Budget.String())
	return &project, nil
}

// UpdateProject edits a planning project; leader only.
func (s *projectService) UpdateProject(ctx context.Context, projectID string, req dto.UpdateProjectRequest, actor portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}
	if !project.Editable() {
		return nil, ErrProjectNotEditable
	}
	if project.LeaderID != actor.UserID {
		return nil, ErrNotProjectLeader
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Budget != nil {
		project.Budget = *req.Budget
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = *req.EndDate
	}
	if err := validateProjectDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}
	if req.BudgetItems != nil {
		if err := validateBudgetItems(*req.BudgetItems, project.Budget); err != nil {
			return nil, err
		}
		project.BudgetItems = newBudgetItems(*req.BudgetItems, project.ProjectID)
	} else if req.Budget != nil {
		if err := checkItemsWithinBudget(project.BudgetItems, project.Budget); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	project.LastUpdatedAt = now
	project.LastUpdatedBy = actor.UserID

	if err := s.projectRepo.UpdateProject(ctx, *project); err != nil {
		logger.Error("Failed to update project", "project_id", projectID, "error", err)
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	logger.Info("Project updated", "project_id", projectID)
	return project, nil
}

// DeleteProject soft-deletes a planning project; leader only.
func (s *projectService) DeleteProject(ctx context.Context, projectID string, actor portssvc.Actor) error {
	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to find project %s: %w", projectID, err)
	}
	if !project.Editable() {
		return ErrProjectNotEditable
	}
	if project.LeaderID != actor.UserID {
		return ErrNotProjectLeader
	}
	return s.projectRepo.SoftDeleteProject(ctx, projectID, actor.UserID, s.clock.Now())
}

// ConfirmProject submits a planning project for audit. The audit status flip
// is guarded in the repository, so a concurrent second confirm fails cleanly.
func (s *projectService) ConfirmProject(ctx context.Context, projectID string, actor portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}
	if project.LeaderID != actor.UserID {
		return nil, ErrNotProjectLeader
	}
	if !project.CanConfirm() {
		return nil, ErrAlreadySubmitted
	}

	err = s.projectRepo.UpdateProjectAudit(ctx, projectID, domain.AuditNotSubmitted, domain.AuditPending, nil, "", actor.UserID, s.clock.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to submit project for audit: %w", err)
	}

	logger.Info("Project submitted for audit", "project_id", projectID)
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

// AuditProject decides a submitted project: approval activates it, rejection
// suspends it. Both the audit status and the lifecycle status move atomically.
func (s *projectService) AuditProject(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !decision.Valid() {
		return nil, ErrInvalidAuditOutcome
	}

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}
	if project.AuditStatus != domain.AuditPending {
		return nil, fmt.Errorf("%w: project is not awaiting audit", apperrors.ErrInvalidStateTransition)
	}

	event := domain.ProjectEventAuditReject
	nextAudit := domain.AuditRejected
	if decision == domain.DecisionApproved {
		event = domain.ProjectEventAuditApprove
		nextAudit = domain.AuditApproved
	}
	next, ok := project.NextStatus(event)
	if !ok {
		return nil, fmt.Errorf("%w: cannot audit project in status %s", apperrors.ErrInvalidStateTransition, project.Status)
	}

	err = s.projectRepo.UpdateProjectAudit(ctx, projectID, domain.AuditPending, nextAudit, &next, comment, auditor.UserID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to audit project: %w", err)
	}

	logger.Info("Project audited", "project_id", projectID, "decision", string(decision), "new_status", string(next))
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

// SubmitCompletionReport moves pending_completion to completion_review;
// leader only.
func (s *projectService) SubmitCompletionReport(ctx context.Context, projectID, reportPath string, actor portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if reportPath == "" {
		return nil, fmt.Errorf("%w: completion report path is required", apperrors.ErrValidation)
	}

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}
	if project.LeaderID != actor.UserID {
		return nil, ErrNotProjectLeader
	}
	next, ok := project.NextStatus(domain.ProjectEventSubmitCompletion)
	if !ok {
		return nil, fmt.Errorf("%w: completion report can only be submitted from pending_completion, current status %s", apperrors.ErrInvalidStateTransition, project.Status)
	}

	err = s.projectRepo.UpdateProjectStatus(ctx, projectID, project.Status, next, &reportPath, nil, actor.UserID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to submit completion report: %w", err)
	}

	logger.Info("Completion report submitted", "project_id", projectID)
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

// AuditCompletion decides the completion review: approval archives the
// project, rejection returns it to pending_completion for resubmission.
func (s *projectService) AuditCompletion(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.Project, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !decision.Valid() {
		return nil, ErrInvalidAuditOutcome
	}

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}

	event := domain.ProjectEventCompletionReject
	if decision == domain.DecisionApproved {
		event = domain.ProjectEventCompletionApprove
	}
	next, ok := project.NextStatus(event)
	if !ok {
		return nil, fmt.Errorf("%w: cannot review completion for project in status %s", apperrors.ErrInvalidStateTransition, project.Status)
	}

	err = s.projectRepo.UpdateProjectStatus(ctx, projectID, project.Status, next, nil, &comment, auditor.UserID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to review project completion: %w", err)
	}

	logger.Info("Project completion reviewed", "project_id", projectID, "decision", string(decision), "new_status", string(next))
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

// ExpireProject is the scheduler entry for the expired-project sweep. It
// re-validates the current status and the end date before mutating, skipping
// rather than failing when another actor got there first.
func (s *projectService) ExpireProject(ctx context.Context, projectID string) (bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	project, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find project %s: %w", projectID, err)
	}

	next, ok := project.NextStatus(domain.ProjectEventExpire)
	if !ok {
		return false, nil
	}
	if !project.Expired(s.clock.Now()) {
		return false, nil
	}

	err = s.projectRepo.UpdateProjectStatus(ctx, projectID, project.Status, next, nil, nil, "system", s.clock.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			return false, nil
		}
		return false, fmt.Errorf("failed to expire project: %w", err)
	}

	logger.Info("Project moved to pending_completion by reconciliation", "project_id", projectID)
	return true, nil
}

// GetProjectByID retrieves a project with its budget items.
func (s *projectService) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

// ListProjects returns all projects.
func (s *projectService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projectRepo.ListProjects(ctx)
}

// ListProjectsByLeader returns the projects led by one user.
func (s *projectService) ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error) {
	return s.projectRepo.ListProjectsByLeader(ctx, leaderID)
}

// FindExpiredActiveProjects returns active projects whose end date has passed;
// used by the scheduler scan.
func (s *projectService) FindExpiredActiveProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projectRepo.FindExpiredActiveProjects(ctx, s.clock.Now())
}

func validateProjectDates(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end date must be after start date", apperrors.ErrValidation)
	}
	return nil
}

func validateBudgetItems(items []dto.BudgetItemRequest, budget decimal.Decimal) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one budget item is required", apperrors.ErrValidation)
	}
	total := decimal.Zero
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: budget item %q must have a positive amount", apperrors.ErrValidation, item.Category)
		}
		if _, dup := seen[item.Category]; dup {
			return fmt.Errorf("%w: duplicate budget item category %q", apperrors.ErrValidation, item.Category)
		}
		seen[item.Category] = struct{}{}
		total = total.Add(item.Amount)
	}
	if total.GreaterThan(budget) {
		return fmt.Errorf("%w: budget items total %s exceeds project budget %s", apperrors.ErrValidation, total.String(), budget.String())
	}
	return nil
}

func checkItemsWithinBudget(items []domain.BudgetItem, budget decimal.Decimal) error {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	if total.GreaterThan(budget) {
		return fmt.Errorf("%w: budget items total %s exceeds project budget %s", apperrors.ErrValidation, total.String(), budget.String())
	}
	return nil
}

func newBudgetItems(reqs []dto.BudgetItemRequest, projectID string) []domain.BudgetItem {
	items := make([]domain.BudgetItem, len(reqs))
	for i, r := range reqs {
		items[i] = domain.BudgetItem{
			BudgetItemID: uuid.NewString(),
			ProjectID:    projectID,
			Category:     r.Category,
			Amount:       r.Amount,
		}
	}
	return items
}
