package services

import (
	"context"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	"github.com/SscSPs/research_fund_app/internal/dto"
)

// TransferSvcFacade drives the fund transfer workflow.
type TransferSvcFacade interface {
	CreateTransfer(ctx context.Context, req dto.CreateTransferRequest, creator Actor) (*domain.FundTransfer, error)
	UpdateTransfer(ctx context.Context, transferID string, req dto.UpdateTransferRequest, actor Actor) (*domain.FundTransfer, error)
	DeleteTransfer(ctx context.Context, transferID string, actor Actor) error
	// AuditTransfer approves or rejects a pending transfer. Approval verifies
	// the project's remaining budget covers the amount and commits it into
	// usedBudget atomically; on insufficient budget the audit fails and the
	// transfer stays pending.
	AuditTransfer(ctx context.Context, transferID string, decision domain.AuditDecision, comment string, auditor Actor) (*domain.FundTransfer, error)
	GetTransferByID(ctx context.Context, transferID string) (*domain.FundTransfer, error)
	ListTransfers(ctx context.Context, params dto.ListTransfersParams) ([]domain.FundTransfer, error)
	ListTransfersByUser(ctx context.Context, userID string, params dto.ListTransfersParams) ([]domain.FundTransfer, error)
}

// FundArrivalSvcFacade records funding installments arriving for a project.
type FundArrivalSvcFacade interface {
	CreateFundArrival(ctx context.Context, req dto.CreateFundArrivalRequest, creator Actor) (*domain.FundArrival, error)
	ConfirmFundArrival(ctx context.Context, arrivalID string, actor Actor) (*domain.FundArrival, error)
	DeleteFundArrival(ctx context.Context, arrivalID string, actor Actor) error
	GetFundArrivalByID(ctx context.Context, arrivalID string) (*domain.FundArrival, error)
	ListFundArrivalsByProject(ctx context.Context, projectID string) (*dto.FundArrivalListResponse, error)
}
