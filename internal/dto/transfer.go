package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
)

// CreateTransferRequest creates a pending fund transfer. Years default to the
// current and next fiscal year when omitted.
type CreateTransferRequest struct {
	Title     string          `json:"title" binding:"required"`
	ProjectID string          `json:"projectID" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	FromYear  string          `json:"fromYear"`
	ToYear    string          `json:"toYear"`
	Reason    string          `json:"reason"`
}

// UpdateTransferRequest edits a pending transfer. Nil fields are left untouched.
type UpdateTransferRequest struct {
	Title    *string          `json:"title"`
	Amount   *decimal.Decimal `json:"amount"`
	FromYear *string          `json:"fromYear"`
	ToYear   *string          `json:"toYear"`
	Reason   *string          `json:"reason"`
}

// ListTransfersParams filters transfer listings. Nil fields match everything.
type ListTransfersParams struct {
	ProjectID *string                `form:"projectID"`
	Status    *domain.TransferStatus `form:"status"`
	FromYear  *string                `form:"fromYear"`
	ToYear    *string                `form:"toYear"`
}

// Matches applies the filter to one transfer.
func (p ListTransfersParams) Matches(t domain.FundTransfer) bool {
	if p.ProjectID != nil && t.ProjectID != *p.ProjectID {
		return false
	}
	if p.Status != nil && t.Status != *p.Status {
		return false
	}
	if p.FromYear != nil && t.FromYear != *p.FromYear {
		return false
	}
	if p.ToYear != nil && t.ToYear != *p.ToYear {
		return false
	}
	return true
}

// CreateFundArrivalRequest records a funding installment arriving.
type CreateFundArrivalRequest struct {
	ProjectID   string          `json:"projectID" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Year        string          `json:"year"`
	ArrivalDate *time.Time      `json:"arrivalDate"`
	VoucherPath string          `json:"voucherPath"`
	Remark      string          `json:"remark"`
}

// FundArrivalListResponse lists a project's arrivals with the arrived total.
type FundArrivalListResponse struct {
	Arrivals    []domain.FundArrival `json:"arrivals"`
	TotalAmount decimal.Decimal      `json:"totalAmount"`
}
