package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the state of an expense claim in its lifecycle.
type ExpenseStatus string

const (
	ExpensePending          ExpenseStatus = "pending"
	ExpenseApproved         ExpenseStatus = "approved"
	ExpenseRejected         ExpenseStatus = "rejected"
	ExpensePaid             ExpenseStatus = "paid"
	ExpenseReceiptPending   ExpenseStatus = "receipt_pending"
	ExpenseReceiptAudit     ExpenseStatus = "receipt_audit"
	ExpenseCompleted        ExpenseStatus = "completed"
	ExpenseRepaymentPending ExpenseStatus = "repayment_pending"
	ExpenseRepaid           ExpenseStatus = "repaid"
)

// ExpenseCategory distinguishes a pre-expense advance from a plain reimbursement.
type ExpenseCategory string

const (
	CategoryAdvance       ExpenseCategory = "advance"
	CategoryReimbursement ExpenseCategory = "reimbursement"
)

// ExpenseEvent names a transition trigger on an expense claim. The interactive
// API and the reconciliation scheduler fire the same events.
type ExpenseEvent string

const (
	EventApprove        ExpenseEvent = "approve"
	EventReject         ExpenseEvent = "reject"
	EventPay            ExpenseEvent = "pay"
	EventSubmitReceipt  ExpenseEvent = "submit_receipt"
	EventApproveReceipt ExpenseEvent = "approve_receipt"
	EventRejectReceipt  ExpenseEvent = "reject_receipt"
	EventReceiptOverdue ExpenseEvent = "receipt_overdue"
	EventRepay          ExpenseEvent = "repay"
)

// expenseTransitions is the single transition table for expense claims.
// EventPay is absent here because its target depends on the claim category;
// see ExpenseClaim.NextStatus.
var expenseTransitions = map[ExpenseStatus]map[ExpenseEvent]ExpenseStatus{
	ExpensePending: {
		EventApprove: ExpenseApproved,
		EventReject:  ExpenseRejected,
	},
	ExpenseReceiptPending: {
		EventSubmitReceipt:  ExpenseReceiptAudit,
		EventReceiptOverdue: ExpenseRepaymentPending,
	},
	ExpenseReceiptAudit: {
		EventApproveReceipt: ExpenseCompleted,
		EventRejectReceipt:  ExpenseRepaymentPending,
	},
	ExpenseRepaymentPending: {
		EventRepay: ExpenseRepaid,
	},
}

// committedStatuses are the statuses whose amounts count against the budget
// ledger: money has left (or is owed back to) the project.
var committedStatuses = map[ExpenseStatus]struct{}{
	ExpensePaid:             {},
	ExpenseReceiptPending:   {},
	ExpenseReceiptAudit:     {},
	ExpenseCompleted:        {},
	ExpenseRepaymentPending: {},
	ExpenseRepaid:           {},
}

// CommittedExpenseStatuses returns the statuses counted by the budget ledger,
// in a stable order suitable for SQL IN clauses.
func CommittedExpenseStatuses() []ExpenseStatus {
	return []ExpenseStatus{
		ExpensePaid,
		ExpenseReceiptPending,
		ExpenseReceiptAudit,
		ExpenseCompleted,
		ExpenseRepaymentPending,
		ExpenseRepaid,
	}
}

// Committed reports whether a claim in this status counts against the ledger.
func (s ExpenseStatus) Committed() bool {
	_, ok := committedStatuses[s]
	return ok
}

// expenseTypeLabels maps spending type keys to the budget category labels the
// project budget items are stored under.
var expenseTypeLabels = map[string]string{
	"equipment":    "设备费",
	"material":     "材料费",
	"test":         "测试化验费",
	"travel":       "差旅费",
	"meeting":      "会议费",
	"labor":        "劳务费",
	"consultation": "专家咨询费",
	"other":        "其他费用",
}

// ExpenseTypeLabel maps a spending type key to its budget category label.
func ExpenseTypeLabel(expenseType string) (string, bool) {
	label, ok := expenseTypeLabels[expenseType]
	return label, ok
}

// ExpenseClaim is an advance or reimbursement request against a project budget.
type ExpenseClaim struct {
	ExpenseID     string          `json:"expenseID"`
	Title         string          `json:"title"`
	ProjectID     string          `json:"projectID"`
	ProjectName   string          `json:"projectName"`
	Category      ExpenseCategory `json:"category"`
	Type          string          `json:"type"` // spending category key, e.g. "travel"
	Amount        decimal.Decimal `json:"amount"`
	Purpose       string          `json:"purpose"`
	Status        ExpenseStatus   `json:"status"`
	ApplyUserID   string          `json:"applyUserID"`
	ApplyUserName string          `json:"applyUserName"`
	ApplyDate     time.Time       `json:"applyDate"`
	AuditUserID   *string         `json:"auditUserID,omitempty"`
	AuditUserName *string         `json:"auditUserName,omitempty"`
	AuditComment  string          `json:"auditComment,omitempty"`
	AuditTime     *time.Time      `json:"auditTime,omitempty"`
	Attachments   []Attachment    `json:"attachments,omitempty"`
	AuditFields
}

// NextStatus resolves the transition table for the claim, handling the one
// category-dependent edge: paying an advance goes straight to receipt_pending,
// paying a reimbursement terminates at paid.
func (c *ExpenseClaim) NextStatus(event ExpenseEvent) (ExpenseStatus, bool) {
	if event == EventPay {
		if c.Status != ExpenseApproved {
			return "", false
		}
		if c.Category == CategoryAdvance {
			return ExpenseReceiptPending, true
		}
		return ExpensePaid, true
	}
	next, ok := expenseTransitions[c.Status][event]
	return next, ok
}

// Editable reports whether the claim may still be updated or deleted.
func (c *ExpenseClaim) Editable() bool {
	return c.Status == ExpensePending
}

// OwnedBy reports whether userID is the original claimant.
func (c *ExpenseClaim) OwnedBy(userID string) bool {
	return c.ApplyUserID == userID
}
