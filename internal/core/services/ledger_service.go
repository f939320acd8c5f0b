package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// ledgerService answers reserve-or-reject questions against a project's
// committed claim totals. It never writes: ledger commits happen inside the
// repository transaction that authorizes them.
type ledgerService struct {
	expenseRepo portsrepo.ExpenseRepositoryFacade
}

// NewLedgerService creates the budget ledger service.
func NewLedgerService(expenseRepo portsrepo.ExpenseRepositoryFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{expenseRepo: expenseRepo}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// CategoryLabel maps a spending type key to its budget category label.
func (s *ledgerService) CategoryLabel(expenseType string) (string, bool) {
	return domain.ExpenseTypeLabel(expenseType)
}

// CheckBudget validates amount against the mapped category sub-budget and the
// project total. Category usage is the sum of claims in committed statuses,
// minus the excluded claim's own amount when re-validating an edit.
func (s *ledgerService) CheckBudget(ctx context.Context, project *domain.Project, expenseType string, amount decimal.Decimal, excludeExpenseID *string) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	label, ok := s.CategoryLabel(expenseType)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown spending type %q", apperrors.ErrValidation, expenseType)
	}

	item, ok := project.BudgetItemByCategory(label)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: spending type %q (%s) is not among the project's budget items", apperrors.ErrValidation, expenseType, label)
	}

	used, err := s.expenseRepo.SumCommittedAmountByType(ctx, project.ProjectID, expenseType, excludeExpenseID)
	if err != nil {
		logger.Error("Failed to sum committed amounts", "project_id", project.ProjectID, "type", expenseType, "error", err)
		return decimal.Zero, fmt.Errorf("failed to compute category usage: %w", err)
	}

	remaining := item.Amount.Sub(used)
	if amount.GreaterThan(remaining) {
		return decimal.Zero, apperrors.NewInsufficientBudgetError(label, remaining)
	}

	if _, err := s.CheckProjectBudget(project, amount); err != nil {
		return decimal.Zero, err
	}

	return remaining, nil
}

// CheckProjectBudget validates amount against the project's total remaining budget.
func (s *ledgerService) CheckProjectBudget(project *domain.Project, amount decimal.Decimal) (decimal.Decimal, error) {
	remaining := project.RemainingBudget()
	if amount.GreaterThan(remaining) {
		return decimal.Zero, apperrors.NewInsufficientBudgetError("", remaining)
	}
	return remaining, nil
}
