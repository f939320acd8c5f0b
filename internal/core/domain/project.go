package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatus is the lifecycle state of a research project.
type ProjectStatus string

const (
	ProjectPlanning          ProjectStatus = "planning"
	ProjectActive            ProjectStatus = "active"
	ProjectSuspended         ProjectStatus = "suspended"
	ProjectPendingCompletion ProjectStatus = "pending_completion"
	ProjectCompletionReview  ProjectStatus = "completion_review"
	ProjectArchived          ProjectStatus = "archived"
)

// ProjectAuditStatus tracks where the project sits in the approval flow.
// "audit" means not yet submitted for review.
type ProjectAuditStatus string

const (
	AuditNotSubmitted ProjectAuditStatus = "audit"
	AuditPending      ProjectAuditStatus = "pending"
	AuditApproved     ProjectAuditStatus = "approved"
	AuditRejected     ProjectAuditStatus = "rejected"
)

// ProjectEvent names a transition trigger on a project.
type ProjectEvent string

const (
	ProjectEventAuditApprove      ProjectEvent = "audit_approve"
	ProjectEventAuditReject       ProjectEvent = "audit_reject"
	ProjectEventExpire            ProjectEvent = "expire"
	ProjectEventSubmitCompletion  ProjectEvent = "submit_completion"
	ProjectEventCompletionApprove ProjectEvent = "completion_approve"
	ProjectEventCompletionReject  ProjectEvent = "completion_reject"
)

// projectTransitions is the single transition table for project status.
// Confirm is not here: it moves auditStatus, not status (see CanConfirm).
var projectTransitions = map[ProjectStatus]map[ProjectEvent]ProjectStatus{
	ProjectPlanning: {
		ProjectEventAuditApprove: ProjectActive,
		ProjectEventAuditReject:  ProjectSuspended,
	},
	ProjectActive: {
		ProjectEventExpire: ProjectPendingCompletion,
	},
	ProjectPendingCompletion: {
		ProjectEventSubmitCompletion: ProjectCompletionReview,
	},
	ProjectCompletionReview: {
		ProjectEventCompletionApprove: ProjectArchived,
		ProjectEventCompletionReject:  ProjectPendingCompletion,
	},
}

// BudgetItem is a named spending-category sub-budget within a project.
type BudgetItem struct {
	BudgetItemID string          `json:"budgetItemID"`
	ProjectID    string          `json:"projectID"`
	Category     string          `json:"category"` // label, e.g. 差旅费
	Amount       decimal.Decimal `json:"amount"`
}

// Project is the sole authority over its budget and budget items.
type Project struct {
	ProjectID            string             `json:"projectID"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	LeaderID             string             `json:"leaderID"`
	LeaderName           string             `json:"leaderName"`
	Budget               decimal.Decimal    `json:"budget"`
	UsedBudget           decimal.Decimal    `json:"usedBudget"`
	BudgetItems          []BudgetItem       `json:"budgetItems,omitempty"`
	Status               ProjectStatus      `json:"status"`
	AuditStatus          ProjectAuditStatus `json:"auditStatus"`
	AuditComment         string             `json:"auditComment,omitempty"`
	StartDate            time.Time          `json:"startDate"`
	EndDate              time.Time          `json:"endDate"`
	CompletionReportPath string             `json:"completionReportPath,omitempty"`
	CompletionComment    string             `json:"completionComment,omitempty"`
	AuditFields
}

// NextStatus resolves the project transition table.
func (p *Project) NextStatus(event ProjectEvent) (ProjectStatus, bool) {
	next, ok := projectTransitions[p.Status][event]
	return next, ok
}

// CanConfirm reports whether the project can be submitted for audit:
// still planning and never submitted before.
func (p *Project) CanConfirm() bool {
	return p.Status == ProjectPlanning && p.AuditStatus == AuditNotSubmitted
}

// Editable reports whether project master data may still be changed.
func (p *Project) Editable() bool {
	return p.Status == ProjectPlanning
}

// Expired reports whether the project end date has passed at the given instant.
func (p *Project) Expired(now time.Time) bool {
	return now.After(p.EndDate)
}

// RemainingBudget is the uncommitted part of the total budget.
func (p *Project) RemainingBudget() decimal.Decimal {
	return p.Budget.Sub(p.UsedBudget)
}

// BudgetItemByCategory finds the sub-budget with the given label.
func (p *Project) BudgetItemByCategory(category string) (*BudgetItem, bool) {
	for i := range p.BudgetItems {
		if p.BudgetItems[i].Category == category {
			return &p.BudgetItems[i], true
		}
	}
	return nil, false
}
