package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time  `json:"createdAt"`
	CreatedBy     string     `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	LastUpdatedBy string     `json:"lastUpdatedBy"` // UserID Reference
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

// AuditDecision is the reviewer's verdict on an audit step. The same two
// values are used by expense audits, receipt audits, transfer audits,
// project audits and completion audits.
type AuditDecision string

const (
	DecisionApproved AuditDecision = "approved"
	DecisionRejected AuditDecision = "rejected"
)

// Valid reports whether the decision is one of the two accepted values.
func (d AuditDecision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Attachment is a stored file reference attached to an expense claim.
// The core never touches file contents; the upload collaborator owns those.
type Attachment struct {
	AttachmentID string `json:"attachmentID"`
	ExpenseID    string `json:"expenseID"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	FileSize     int64  `json:"fileSize"`
	FileType     string `json:"fileType"`
}
