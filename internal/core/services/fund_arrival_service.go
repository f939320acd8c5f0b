package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

var ErrArrivalNotEditable = fmt.Errorf("%w: confirmed arrivals cannot be changed", apperrors.ErrInvalidStateTransition)

type fundArrivalService struct {
	arrivalRepo portsrepo.FundArrivalRepositoryFacade
	projectSvc  portssvc.ProjectSvcFacade
	clock       portssvc.Clock
}

// NewFundArrivalService creates a new fund arrival service.
func NewFundArrivalService(arrivalRepo portsrepo.FundArrivalRepositoryFacade, projectSvc portssvc.ProjectSvcFacade, clock portssvc.Clock) portssvc.FundArrivalSvcFacade {
	return &fundArrivalService{arrivalRepo: arrivalRepo, projectSvc: projectSvc, clock: clock}
}

var _ portssvc.FundArrivalSvcFacade = (*fundArrivalService)(nil)

// CreateFundArrival records a funding installment. The cumulative arrived
// amount may never exceed the project's total budget.
func (s *fundArrivalService) CreateFundArrival(ctx context.Context, req dto.CreateFundArrivalRequest, creator portssvc.Actor) (*domain.FundArrival, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	project, err := s.projectSvc.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", req.ProjectID, err)
	}

	arrived, err := s.arrivalRepo.SumFundArrivalsByProject(ctx, project.ProjectID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum prior arrivals: %w", err)
	}
	if arrived.Add(req.Amount).GreaterThan(project.Budget) {
		return nil, fmt.Errorf("%w: cumulative arrivals %s would exceed project budget %s",
			apperrors.ErrValidation, arrived.Add(req.Amount).String(), project.Budget.String())
	}

	now := s.clock.Now()
	year := req.Year
	if year == "" {
		year = now.Format("2006")
	}
	arrivalDate := now
	if req.ArrivalDate != nil {
		arrivalDate = *req.ArrivalDate
	}

	arrival := domain.FundArrival{
		ArrivalID:     uuid.NewString(),
		ProjectID:     project.ProjectID,
		ProjectName:   project.Name,
		Amount:        req.Amount,
		Year:          year,
		ArrivalDate:   arrivalDate,
		VoucherPath:   req.VoucherPath,
		Remark:        req.Remark,
		Status:        domain.ArrivalPending,
		ApplyUserID:   creator.UserID,
		ApplyUserName: creator.UserName,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creator.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creator.UserID,
		},
	}

	if err := s.arrivalRepo.SaveFundArrival(ctx, arrival); err != nil {
		logger.Error("Failed to save fund arrival", "error", err)
		return nil, fmt.Errorf("failed to save fund arrival: %w", err)
	}

	logger.Info("Fund arrival recorded", "arrival_id", arrival.ArrivalID, "project_id", arrival.ProjectID, "amount", arrival.Amount.String())
	return &arrival, nil
}

// ConfirmFundArrival marks a pending arrival as confirmed.
func (s *fundArrivalService) ConfirmFundArrival(ctx context.Context, arrivalID string, actor portssvc.Actor) (*domain.FundArrival, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	arrival, err := s.arrivalRepo.FindFundArrivalByID(ctx, arrivalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find fund arrival %s: %w", arrivalID, err)
	}
	if !arrival.Editable() {
		return nil, ErrArrivalNotEditable
	}

	err = s.arrivalRepo.UpdateFundArrivalStatus(ctx, arrivalID, domain.ArrivalPending, domain.ArrivalConfirmed, actor.UserID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to confirm fund arrival: %w", err)
	}

	logger.Info("Fund arrival confirmed", "arrival_id", arrivalID)
	return s.arrivalRepo.FindFundArrivalByID(ctx, arrivalID)
}

// DeleteFundArrival soft-deletes a pending arrival record.
func (s *fundArrivalService) DeleteFundArrival(ctx context.Context, arrivalID string, actor portssvc.Actor) error {
	arrival, err := s.arrivalRepo.FindFundArrivalByID(ctx, arrivalID)
	if err != nil {
		return fmt.Errorf("failed to find fund arrival %s: %w", arrivalID, err)
	}
	if !arrival.Editable() {
		return ErrArrivalNotEditable
	}
	return s.arrivalRepo.SoftDeleteFundArrival(ctx, arrivalID, actor.UserID, s.clock.Now())
}

// GetFundArrivalByID retrieves a single arrival record.
func (s *fundArrivalService) GetFundArrivalByID(ctx context.Context, arrivalID string) (*domain.FundArrival, error) {
	return s.arrivalRepo.FindFundArrivalByID(ctx, arrivalID)
}

// ListFundArrivalsByProject lists a project's arrivals with the arrived total.
func (s *fundArrivalService) ListFundArrivalsByProject(ctx context.Context, projectID string) (*dto.FundArrivalListResponse, error) {
	arrivals, err := s.arrivalRepo.ListFundArrivalsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund arrivals for project %s: %w", projectID, err)
	}
	total := decimal.Zero
	for _, a := range arrivals {
		total = total.Add(a.Amount)
	}
	return &dto.FundArrivalListResponse{Arrivals: arrivals, TotalAmount: total}, nil
}
