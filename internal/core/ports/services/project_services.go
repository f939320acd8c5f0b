package services

import (
	"context"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	"github.com/SscSPs/research_fund_app/internal/dto"
)

// ProjectSvcFacade drives the project lifecycle.
type ProjectSvcFacade interface {
	CreateProject(ctx context.Context, req dto.CreateProjectRequest, creator Actor) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, req dto.UpdateProjectRequest, actor Actor) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string, actor Actor) error
	// ConfirmProject submits a planning project for audit. A second call fails
	// with apperrors.ErrInvalidStateTransition (already submitted).
	ConfirmProject(ctx context.Context, projectID string, actor Actor) (*domain.Project, error)
	// AuditProject decides a submitted project: approved -> active,
	// rejected -> suspended.
	AuditProject(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor Actor) (*domain.Project, error)
	// SubmitCompletionReport moves pending_completion -> completion_review;
	// project leader only.
	SubmitCompletionReport(ctx context.Context, projectID, reportPath string, actor Actor) (*domain.Project, error)
	// AuditCompletion decides the completion review: approved -> archived,
	// rejected -> pending_completion (resubmission allowed).
	AuditCompletion(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor Actor) (*domain.Project, error)
	// ExpireProject is the scheduler entry: moves an active project past its
	// end date to pending_completion. Skips (ok false, nil error) when the
	// project is no longer active or has not yet ended.
	ExpireProject(ctx context.Context, projectID string) (bool, error)
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error)
	FindExpiredActiveProjects(ctx context.Context) ([]domain.Project, error)
}
