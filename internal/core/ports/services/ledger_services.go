package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
)

// LedgerSvcFacade is the budget ledger: it owns the spending-type to
// budget-category mapping and answers reserve-or-reject questions against a
// project's current committed totals.
type LedgerSvcFacade interface {
	// CategoryLabel maps a spending type key (e.g. "travel") to the budget
	// item label it draws from (e.g. 差旅费). ok is false for unknown types.
	CategoryLabel(expenseType string) (label string, ok bool)
	// CheckBudget validates that amount fits inside both the mapped category's
	// sub-budget and the project's total budget, computing category usage from
	// claims currently in committed statuses. excludeExpenseID removes a
	// claim's own prior amount when re-validating an edit. Returns the
	// category's remaining balance on success; on overrun the error unwraps to
	// apperrors.ErrInsufficientBudget and carries the remaining amount.
	CheckBudget(ctx context.Context, project *domain.Project, expenseType string, amount decimal.Decimal, excludeExpenseID *string) (decimal.Decimal, error)
	// CheckProjectBudget validates amount against the project total only.
	CheckProjectBudget(project *domain.Project, amount decimal.Decimal) (decimal.Decimal, error)
}
