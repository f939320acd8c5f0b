package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetItemRequest is one spending-category sub-budget on a project.
type BudgetItemRequest struct {
	Category string          `json:"category" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// CreateProjectRequest creates a project in planning status.
type CreateProjectRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Budget      decimal.Decimal     `json:"budget" binding:"required"`
	StartDate   time.Time           `json:"startDate" binding:"required"`
	EndDate     time.Time           `json:"endDate" binding:"required"`
	BudgetItems []BudgetItemRequest `json:"budgetItems" binding:"required,min=1,dive"`
}

// UpdateProjectRequest edits a planning project. Nil fields are left untouched.
type UpdateProjectRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Budget      *decimal.Decimal     `json:"budget"`
	StartDate   *time.Time           `json:"startDate"`
	EndDate     *time.Time           `json:"endDate"`
	BudgetItems *[]BudgetItemRequest `json:"budgetItems" binding:"omitempty,dive"`
}

// CompletionReportRequest submits the completion report for review.
type CompletionReportRequest struct {
	ReportPath string `json:"reportPath" binding:"required"`
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
