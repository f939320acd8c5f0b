package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the state of a fund transfer request.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferRejected  TransferStatus = "rejected"
	TransferCompleted TransferStatus = "completed"
)

// FundTransfer moves unspent budget across fiscal years. Approval commits the
// amount into the project's used budget, modeling funds parked for the next
// period's consumable pool.
type FundTransfer struct {
	TransferID    string          `json:"transferID"`
	Title         string          `json:"title"`
	ProjectID     string          `json:"projectID"`
	ProjectName   string          `json:"projectName"`
	Amount        decimal.Decimal `json:"amount"`
	FromYear      string          `json:"fromYear"`
	ToYear        string          `json:"toYear"`
	Reason        string          `json:"reason"`
	Status        TransferStatus  `json:"status"`
	ApplyUserID   string          `json:"applyUserID"`
	ApplyUserName string          `json:"applyUserName"`
	ApplyDate     time.Time       `json:"applyDate"`
	AuditUserID   *string         `json:"auditUserID,omitempty"`
	AuditUserName *string         `json:"auditUserName,omitempty"`
	AuditComment  string          `json:"auditComment,omitempty"`
	AuditTime     *time.Time      `json:"auditTime,omitempty"`
	AuditFields
}

// Auditable reports whether the transfer can still be audited.
func (t *FundTransfer) Auditable() bool {
	return t.Status == TransferPending
}

// Editable reports whether the transfer may still be updated or deleted.
func (t *FundTransfer) Editable() bool {
	return t.Status == TransferPending
}
