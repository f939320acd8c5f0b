package services

import (
	"context"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	"github.com/SscSPs/research_fund_app/internal/dto"
)

// ExpenseSvcFacade drives the expense claim state machine. Every transition
// loads current state first; attempts from a non-permitted state fail with
// apperrors.ErrInvalidStateTransition, budget overruns with
// apperrors.ErrInsufficientBudget.
type ExpenseSvcFacade interface {
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creator Actor) (*domain.ExpenseClaim, error)
	// UpdateExpense is permitted only while pending; changes to project, type
	// or amount re-run the full budget validation excluding the claim's own
	// prior reservation.
	UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor Actor) (*domain.ExpenseClaim, error)
	DeleteExpense(ctx context.Context, expenseID string, actor Actor) error
	// AuditExpense decides a pending claim; approval ledger-checks the amount.
	AuditExpense(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor Actor) (*domain.ExpenseClaim, error)
	// PayExpense re-checks budget and commits the amount; advances move to
	// receipt_pending, reimbursements terminate at paid.
	PayExpense(ctx context.Context, expenseID string, actor Actor) (*domain.ExpenseClaim, error)
	// SubmitReceipt requires the original claimant and at least one attachment.
	SubmitReceipt(ctx context.Context, expenseID string, attachments []dto.AttachmentRequest, actor Actor) (*domain.ExpenseClaim, error)
	AuditReceipt(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor Actor) (*domain.ExpenseClaim, error)
	// RepayExpense reverses the ledger commit with a negative delta; claimant only.
	RepayExpense(ctx context.Context, expenseID string, actor Actor) (*domain.ExpenseClaim, error)
	// MarkReceiptOverdue is the scheduler entry: moves a receipt_pending claim
	// to repayment_pending once its project's end date has passed. Skips (ok
	// false, nil error) when the claim is no longer in receipt_pending or the
	// project has not ended.
	MarkReceiptOverdue(ctx context.Context, expenseID string) (bool, error)
	GetExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error)
	ListExpenses(ctx context.Context, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error)
	ListExpensesByUser(ctx context.Context, userID string, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error)
	ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error)
	FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error)
}
