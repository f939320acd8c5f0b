package services

import (
	"context"
	"fmt"
	"strconv"

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
	ErrTransferNotEditable = fmt.Errorf("%w: only pending transfers can be modified", apperrors.ErrInvalidStateTransition)
	ErrTransferDecided     = fmt.Errorf("%w: transfer has already been decided", apperrors.ErrInvalidStateTransition)
	ErrNotTransferOwner    = fmt.Errorf("%w: only the applicant may perform this operation", apperrors.ErrForbidden)
)

type transferService struct {
	transferRepo portsrepo.TransferRepositoryFacade
	projectSvc   portssvc.ProjectSvcFacade
	ledgerSvc    portssvc.LedgerSvcFacade
	clock        portssvc.Clock
}

// NewTransferService creates a new fund transfer service.
func NewTransferService(transferRepo portsrepo.TransferRepositoryFacade, projectSvc portssvc.ProjectSvcFacade, ledgerSvc portssvc.LedgerSvcFacade, clock portssvc.Clock) portssvc.TransferSvcFacade {
	return &transferService{
		transferRepo: transferRepo,
		projectSvc:   projectSvc,
		ledgerSvc:    ledgerSvc,
		clock:        clock,
	}
}

var _ portssvc.TransferSvcFacade = (*transferService)(nil)

// CreateTransfer records a pending cross-year transfer request. Years default
// to the current and next fiscal year. Creation does not touch the ledger.
func (s *transferService) CreateTransfer(ctx context.Context, req dto.CreateTransferRequest, creator portssvc.Actor) (*domain.FundTransfer, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	project, err := s.projectSvc.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", req.ProjectID, err)
	}

	now := s.clock.Now()
	fromYear := req.FromYear
	if fromYear == "" {
		fromYear = strconv.Itoa(now.Year())
	}
	toYear := req.ToYear
	if toYear == "" {
		toYear = strconv.Itoa(now.Year() + 1)
	}

	transfer := domain.FundTransfer{
		TransferID:    uuid.NewString(),
		Title:         req.Title,
		ProjectID:     project.ProjectID,
		ProjectName:   project.Name,
		Amount:        req.Amount,
		FromYear:      fromYear,
		ToYear:        toYear,
		Reason:        req.Reason,
		Status:        domain.TransferPending,
		ApplyUserID:   creator.UserID,
		ApplyUserName: creator.UserName,
		ApplyDate:     now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creator.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creator.UserID,
		},
	}

	if err := s.transferRepo.SaveTransfer(ctx, transfer); err != nil {
		logger.Error("Failed to save transfer", "error", err)
		return nil, fmt.Errorf("failed to save transfer: %w", err)
	}

	logger.Info("Fund transfer created", "transfer_id", transfer.TransferID, "project_id", transfer.ProjectID, "amount", transfer.Amount.String())
	return &transfer, nil
}

// UpdateTransfer edits a pending transfer; applicant only.
func (s *transferService) UpdateTransfer(ctx context.Context, transferID string, req dto.UpdateTransferRequest, actor portssvc.Actor) (*domain.FundTransfer, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	transfer, err := s.transferRepo.FindTransferByID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer %s: %w", transferID, err)
	}
	if !transfer.Editable() {
		return nil, ErrTransferNotEditable
	}
	if transfer.ApplyUserID != actor.UserID {
		return nil, ErrNotTransferOwner
	}

	if req.Title != nil {
		transfer.Title = *req.Title
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
		}
		transfer.Amount = *req.Amount
	}
	if req.FromYear != nil {
		transfer.FromYear = *req.FromYear
	}
	if req.ToYear != nil {
		transfer.ToYear = *req.ToYear
	}
	if req.Reason != nil {
		transfer.Reason = *req.Reason
	}
	transfer.LastUpdatedAt = s.clock.Now()
	transfer.LastUpdatedBy = actor.UserID

	if err := s.transferRepo.UpdateTransfer(ctx, *transfer); err != nil {
		logger.Error("Failed to update transfer", "transfer_id", transferID, "error", err)
		return nil, fmt.Errorf("failed to update transfer: %w", err)
	}

	logger.Info("Fund transfer updated", "transfer_id", transferID)
	return transfer, nil
}

// DeleteTransfer soft-deletes a pending transfer; applicant only.
func (s *transferService) DeleteTransfer(ctx context.Context, transferID string, actor portssvc.Actor) error {
	transfer, err := s.transferRepo.FindTransferByID(ctx, transferID)
	if err != nil {
		return fmt.Errorf("failed to find transfer %s: %w", transferID, err)
	}
	if !transfer.Editable() {
		return ErrTransferNotEditable
	}
	if transfer.ApplyUserID != actor.UserID {
		return ErrNotTransferOwner
	}
	return s.transferRepo.SoftDeleteTransfer(ctx, transferID, actor.UserID, s.clock.Now())
}

// AuditTransfer decides a pending transfer. Approval pre-checks the project's
// remaining budget for a precise error, then commits the amount and the flip
// atomically; the repository re-checks under the project row lock. On
// insufficient budget nothing is written and the transfer stays pending.
func (s *transferService) AuditTransfer(ctx context.Context, transferID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.FundTransfer, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !decision.Valid() {
		return nil, ErrInvalidAuditOutcome
	}

	transfer, err := s.transferRepo.FindTransferByID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer %s: %w", transferID, err)
	}
	if !transfer.Auditable() {
		return nil, ErrTransferDecided
	}

	stamp := &portsrepo.AuditStamp{UserID: auditor.UserID, UserName: auditor.UserName}
	now := s.clock.Now()

	if decision == domain.DecisionRejected {
		err := s.transferRepo.UpdateTransferStatus(ctx, transferID, domain.TransferPending, domain.TransferRejected, stamp, comment, now)
		if err != nil {
			return nil, fmt.Errorf("failed to reject transfer: %w", err)
		}
		logger.Info("Fund transfer rejected", "transfer_id", transferID)
		return s.transferRepo.FindTransferByID(ctx, transferID)
	}

	project, err := s.projectSvc.GetProjectByID(ctx, transfer.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", transfer.ProjectID, err)
	}
	if _, err := s.ledgerSvc.CheckProjectBudget(project, transfer.Amount); err != nil {
		return nil, err
	}

	if err := s.transferRepo.ApproveTransferWithBudget(ctx, *transfer, stamp, comment, now); err != nil {
		logger.Warn("Transfer approval failed", "transfer_id", transferID, "error", err)
		return nil, err
	}

	logger.Info("Fund transfer approved", "transfer_id", transferID, "amount", transfer.Amount.String())
	return s.transferRepo.FindTransferByID(ctx, transferID)
}

// GetTransferByID retrieves a single transfer.
func (s *transferService) GetTransferByID(ctx context.Context, transferID string) (*domain.FundTransfer, error) {
	return s.transferRepo.FindTransferByID(ctx, transferID)
}

// ListTransfers returns all transfers matching the filter.
func (s *transferService) ListTransfers(ctx context.Context, params dto.ListTransfersParams) ([]domain.FundTransfer, error) {
	transfers, err := s.transferRepo.ListTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return filterTransfers(transfers, params), nil
}

// ListTransfersByUser returns the user's transfers matching the filter.
func (s *transferService) ListTransfersByUser(ctx context.Context, userID string, params dto.ListTransfersParams) ([]domain.FundTransfer, error) {
	transfers, err := s.transferRepo.ListTransfersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers for user %s: %w", userID, err)
	}
	return filterTransfers(transfers, params), nil
}

func filterTransfers(transfers []domain.FundTransfer, params dto.ListTransfersParams) []domain.FundTransfer {
	filtered := make([]domain.FundTransfer, 0, len(transfers))
	for _, t := range transfers {
		if params.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
