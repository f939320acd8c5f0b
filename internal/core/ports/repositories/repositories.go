package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
)

// AuditStamp identifies the reviewer recorded on an audit transition.
type AuditStamp struct {
	UserID   string
	UserName string
}

// Each method is transactional per call. Methods that both flip a status and
// move money do so in one database transaction, locking the project row, so
// the ledger and the state cannot diverge. Every status write carries a
// WHERE status = <expected> guard and reports
// apperrors.ErrInvalidStateTransition when the guard misses.

// ProjectRepositoryFacade defines persistence operations for projects and
// their budget items. A project owns its budget items; saving one persists both.
type ProjectRepositoryFacade interface {
	SaveProject(ctx context.Context, project domain.Project) error
	FindProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	// UpdateProject replaces master data and budget items; only valid while the
	// stored row is still in planning (guarded).
	UpdateProject(ctx context.Context, project domain.Project) error
	// UpdateProjectStatus flips status from expected to next; optional report
	// path and completion comment are written in the same statement.
	UpdateProjectStatus(ctx context.Context, projectID string, expected, next domain.ProjectStatus, reportPath, comment *string, updatedBy string, updatedAt time.Time) error
	// UpdateProjectAudit flips auditStatus from expected to next and, when
	// newStatus is non-nil, the status column too, atomically.
	UpdateProjectAudit(ctx context.Context, projectID string, expected, next domain.ProjectAuditStatus, newStatus *domain.ProjectStatus, comment string, updatedBy string, updatedAt time.Time) error
	FindProjectsByStatus(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error)
	FindExpiredActiveProjects(ctx context.Context, asOf time.Time) ([]domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error)
	SoftDeleteProject(ctx context.Context, projectID, deletedBy string, deletedAt time.Time) error
}

// ExpenseRepositoryFacade defines persistence operations for expense claims
// and their attachments.
type ExpenseRepositoryFacade interface {
	SaveExpense(ctx context.Context, claim domain.ExpenseClaim) error
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error)
	// UpdateExpense rewrites claim fields and, when replaceAttachments is set,
	// its attachment list; guarded on the stored status still being pending.
	UpdateExpense(ctx context.Context, claim domain.ExpenseClaim, replaceAttachments bool) error
	// UpdateExpenseStatus performs a guarded status flip with optional audit stamp.
	UpdateExpenseStatus(ctx context.Context, expenseID string, expected, next domain.ExpenseStatus, audit *AuditStamp, comment string, updatedAt time.Time) error
	// PayExpenseWithBudget re-checks category and project budget under a project
	// row lock, flips approved -> next and commits +amount to usedBudget in one
	// transaction. Rejections surface as apperrors.ErrInsufficientBudget.
	PayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, next domain.ExpenseStatus, comment string, updatedAt time.Time) error
	// RepayExpenseWithBudget flips repayment_pending -> repaid and commits
	// -amount to usedBudget in one transaction.
	RepayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, comment string, updatedAt time.Time) error
	// SumCommittedAmountByType totals claim amounts in committed statuses for a
	// project/spending type, optionally excluding one claim (edit re-validation).
	SumCommittedAmountByType(ctx context.Context, projectID, expenseType string, excludeExpenseID *string) (decimal.Decimal, error)
	AddAttachments(ctx context.Context, expenseID string, attachments []domain.Attachment) error
	FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error)
	ListExpensesByUser(ctx context.Context, userID string) ([]domain.ExpenseClaim, error)
	ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error)
	ListExpenses(ctx context.Context) ([]domain.ExpenseClaim, error)
	SoftDeleteExpense(ctx context.Context, expenseID, deletedBy string, deletedAt time.Time) error
}

// TransferRepositoryFacade defines persistence operations for fund transfers.
type TransferRepositoryFacade interface {
	SaveTransfer(ctx context.Context, transfer domain.FundTransfer) error
	FindTransferByID(ctx context.Context, transferID string) (*domain.FundTransfer, error)
	UpdateTransfer(ctx context.Context, transfer domain.FundTransfer) error
	// UpdateTransferStatus performs a guarded flip; used for the reject path.
	UpdateTransferStatus(ctx context.Context, transferID string, expected, next domain.TransferStatus, audit *AuditStamp, comment string, updatedAt time.Time) error
	// ApproveTransferWithBudget verifies remaining budget under a project row
	// lock, flips pending -> approved and commits +amount to usedBudget in one
	// transaction; on insufficient budget nothing is written.
	ApproveTransferWithBudget(ctx context.Context, transfer domain.FundTransfer, audit *AuditStamp, comment string, updatedAt time.Time) error
	ListTransfers(ctx context.Context) ([]domain.FundTransfer, error)
	ListTransfersByUser(ctx context.Context, userID string) ([]domain.FundTransfer, error)
	SoftDeleteTransfer(ctx context.Context, transferID, deletedBy string, deletedAt time.Time) error
}

// FundArrivalRepositoryFacade defines persistence operations for fund arrivals.
type FundArrivalRepositoryFacade interface {
	SaveFundArrival(ctx context.Context, arrival domain.FundArrival) error
	FindFundArrivalByID(ctx context.Context, arrivalID string) (*domain.FundArrival, error)
	ListFundArrivalsByProject(ctx context.Context, projectID string) ([]domain.FundArrival, error)
	// SumFundArrivalsByProject totals pending and confirmed arrival amounts.
	SumFundArrivalsByProject(ctx context.Context, projectID string, excludeArrivalID *string) (decimal.Decimal, error)
	UpdateFundArrivalStatus(ctx context.Context, arrivalID string, expected, next domain.ArrivalStatus, updatedBy string, updatedAt time.Time) error
	SoftDeleteFundArrival(ctx context.Context, arrivalID, deletedBy string, deletedAt time.Time) error
}

// RepositoryContainer bundles the concrete repositories for wiring.
type RepositoryContainer struct {
	Project     ProjectRepositoryFacade
	Expense     ExpenseRepositoryFacade
	Transfer    TransferRepositoryFacade
	FundArrival FundArrivalRepositoryFacade
}
