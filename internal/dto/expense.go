package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
)

// AttachmentRequest is one uploaded file reference supplied by the caller.
// The upload collaborator has already stored the bytes; we only keep metadata.
type AttachmentRequest struct {
	Name     string `json:"name" binding:"required"`
	Path     string `json:"path" binding:"required"`
	FileSize int64  `json:"fileSize" binding:"gte=0"`
	FileType string `json:"fileType"`
}

// ToDomain converts the request into a domain attachment (ID assigned later).
func (a AttachmentRequest) ToDomain() domain.Attachment {
	return domain.Attachment{
		Name:     a.Name,
		Path:     a.Path,
		FileSize: a.FileSize,
		FileType: a.FileType,
	}
}

// CreateExpenseRequest creates a new expense claim in pending status.
type CreateExpenseRequest struct {
	Title       string                 `json:"title" binding:"required"`
	ProjectID   string                 `json:"projectID" binding:"required"`
	Category    domain.ExpenseCategory `json:"category" binding:"omitempty,oneof=advance reimbursement"`
	Type        string                 `json:"type" binding:"required"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Purpose     string                 `json:"purpose"`
	ApplyDate   *time.Time             `json:"applyDate"`
	Attachments []AttachmentRequest    `json:"attachments" binding:"omitempty,dive"`
}

// UpdateExpenseRequest edits a pending claim. Nil fields are left untouched.
type UpdateExpenseRequest struct {
	Title       *string              `json:"title"`
	ProjectID   *string              `json:"projectID"`
	Type        *string              `json:"type"`
	Amount      *decimal.Decimal     `json:"amount"`
	Purpose     *string              `json:"purpose"`
	Attachments *[]AttachmentRequest `json:"attachments" binding:"omitempty,dive"`
}

// AuditRequest carries a reviewer decision for any audit step.
type AuditRequest struct {
	Decision domain.AuditDecision `json:"decision" binding:"required,oneof=approved rejected"`
	Comment  string               `json:"comment"`
}

// SubmitReceiptRequest attaches reimbursement receipts to an advance claim.
type SubmitReceiptRequest struct {
	Attachments []AttachmentRequest `json:"attachments" binding:"required,min=1,dive"`
}

// ListExpensesParams filters expense listings. Nil fields match everything.
type ListExpensesParams struct {
	ProjectID *string                 `form:"projectID"`
	Status    *domain.ExpenseStatus   `form:"status"`
	Category  *domain.ExpenseCategory `form:"category"`
	Type      *string                 `form:"type"`
	Title     *string                 `form:"title"`
}

// Matches applies the filter to one claim.
func (p ListExpensesParams) Matches(c domain.ExpenseClaim) bool {
	if p.ProjectID != nil && c.ProjectID != *p.ProjectID {
		return false
	}
	if p.Status != nil && c.Status != *p.Status {
		return false
	}
	if p.Category != nil && c.Category != *p.Category {
		return false
	}
	if p.Type != nil && c.Type != *p.Type {
		return false
	}
	if p.Title != nil && *p.Title != "" && !containsFold(c.Title, *p.Title) {
		return false
	}
	return true
}
