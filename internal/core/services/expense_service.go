package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

var (
	ErrClaimNotEditable    = fmt.Errorf("%w: only pending claims can be modified", apperrors.ErrInvalidStateTransition)
	ErrReceiptsRequired    = fmt.Errorf("%w: at least one receipt attachment is required", apperrors.ErrValidation)
	ErrNotClaimant         = fmt.Errorf("%w: only the original claimant may perform this operation", apperrors.ErrForbidden)
	ErrInvalidAuditOutcome = fmt.Errorf("%w: audit decision must be approved or rejected", apperrors.ErrValidation)
)

// expenseService drives the expense claim state machine. All transitions load
// current state first and rely on status-guarded repository writes, so the
// interactive API and the reconciliation scheduler share one code path.
type expenseService struct {
	expenseRepo portsrepo.ExpenseRepositoryFacade
	projectSvc  portssvc.ProjectSvcFacade
	ledgerSvc   portssvc.LedgerSvcFacade
	clock       portssvc.Clock
}

// NewExpenseService creates a new expense claim service.
func NewExpenseService(expenseRepo portsrepo.ExpenseRepositoryFacade, projectSvc portssvc.ProjectSvcFacade, ledgerSvc portssvc.LedgerSvcFacade, clock portssvc.Clock) portssvc.ExpenseSvcFacade {
	return &expenseService{
		expenseRepo: expenseRepo,
		projectSvc:  projectSvc,
		ledgerSvc:   ledgerSvc,
		clock:       clock,
	}
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// CreateExpense creates a claim in pending status after validating the
// spending type and amount against the project's budget items.
func (s *expenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creator portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	project, err := s.projectSvc.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", req.ProjectID, err)
	}

	if _, err := s.ledgerSvc.CheckBudget(ctx, project, req.Type, req.Amount, nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	category := req.Category
	if category == "" {
		category = domain.CategoryAdvance
	}
	applyDate := now
	if req.ApplyDate != nil {
		applyDate = *req.ApplyDate
	}

	claim := domain.ExpenseClaim{
		ExpenseID:     uuid.NewString(),
		Title:         req.Title,
		ProjectID:     project.ProjectID,
		ProjectName:   project.Name,
		Category:      category,
		Type:          req.Type,
		Amount:        req.Amount,
		Purpose:       req.Purpose,
		Status:        domain.ExpensePending,
		ApplyUserID:   creator.UserID,
		ApplyUserName: creator.UserName,
		ApplyDate:     applyDate,
		Attachments:   newAttachments(req.Attachments, ""),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creator.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creator.UserID,
		},
	}
	for i := range claim.Attachments {
		claim.Attachments[i].ExpenseID = claim.ExpenseID
	}

	if err := s.expenseRepo.SaveExpense(ctx, claim); err != nil {
		logger.Error("Failed to save expense claim", "error", err)
		return nil, fmt.Errorf("failed to save expense claim: %w", err)
	}

	logger.Info("Expense claim created", "expense_id", claim.ExpenseID, "project_id", claim.ProjectID, "amount", claim.Amount.String())
	return &claim, nil
}

// UpdateExpense edits a pending claim. Changes to project, type or amount
// re-run the full budget validation, excluding the claim's own prior amount
// from the committed sum.
func (s *expenseService) UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}
	if !claim.Editable() {
		return nil, ErrClaimNotEditable
	}
	if !claim.OwnedBy(actor.UserID) {
		return nil, ErrNotClaimant
	}

	projectID := claim.ProjectID
	if req.ProjectID != nil {
		projectID = *req.ProjectID
	}
	expenseType := claim.Type
	if req.Type != nil {
		expenseType = *req.Type
	}
	amount := claim.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}

	budgetRelevant := projectID != claim.ProjectID || expenseType != claim.Type || !amount.Equal(claim.Amount)
	project, err := s.projectSvc.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	if budgetRelevant {
		excludeID := claim.ExpenseID
		if _, err := s.ledgerSvc.CheckBudget(ctx, project, expenseType, amount, &excludeID); err != nil {
			return nil, err
		}
	}

	claim.ProjectID = project.ProjectID
	claim.ProjectName = project.Name
	claim.Type = expenseType
	claim.Amount = amount
	if req.Title != nil {
		claim.Title = *req.Title
	}
	if req.Purpose != nil {
		claim.Purpose = *req.Purpose
	}
	replaceAttachments := false
	if req.Attachments != nil {
		replaceAttachments = true
		claim.Attachments = newAttachments(*req.Attachments, claim.ExpenseID)
	}
	now := s.clock.Now()
	claim.LastUpdatedAt = now
	claim.LastUpdatedBy = actor.UserID

	if err := s.expenseRepo.UpdateExpense(ctx, *claim, replaceAttachments); err != nil {
		logger.Error("Failed to update expense claim", "expense_id", expenseID, "error", err)
		return nil, fmt.Errorf("failed to update expense claim: %w", err)
	}

	logger.Info("Expense claim updated", "expense_id", expenseID)
	return claim, nil
}

// DeleteExpense soft-deletes a pending claim; claimant only.
func (s *expenseService) DeleteExpense(ctx context.Context, expenseID string, actor portssvc.Actor) error {
	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}
	if !claim.Editable() {
		return ErrClaimNotEditable
	}
	if !claim.OwnedBy(actor.UserID) {
		return ErrNotClaimant
	}
	return s.expenseRepo.SoftDeleteExpense(ctx, expenseID, actor.UserID, s.clock.Now())
}

// AuditExpense decides a pending claim. Approval ledger-checks the amount
// against both the mapped category and the project total; rejecting never
// touches the ledger.
func (s *expenseService) AuditExpense(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !decision.Valid() {
		return nil, ErrInvalidAuditOutcome
	}

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}

	event := domain.EventReject
	if decision == domain.DecisionApproved {
		event = domain.EventApprove
	}
	next, ok := claim.NextStatus(event)
	if !ok {
		return nil, fmt.Errorf("%w: cannot audit claim in status %s", apperrors.ErrInvalidStateTransition, claim.Status)
	}

	if decision == domain.DecisionApproved {
		project, err := s.projectSvc.GetProjectByID(ctx, claim.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %s: %w", claim.ProjectID, err)
		}
		if _, err := s.ledgerSvc.CheckBudget(ctx, project, claim.Type, claim.Amount, nil); err != nil {
			return nil, err
		}
	}

	stamp := &portsrepo.AuditStamp{UserID: auditor.UserID, UserName: auditor.UserName}
	if err := s.expenseRepo.UpdateExpenseStatus(ctx, expenseID, claim.Status, next, stamp, comment, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to audit expense claim: %w", err)
	}

	logger.Info("Expense claim audited", "expense_id", expenseID, "decision", string(decision), "new_status", string(next))
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// PayExpense disburses an approved claim. The repository re-checks the budget
// under a project row lock and commits the amount to usedBudget atomically
// with the status flip, so concurrent payments cannot over-commit.
func (s *expenseService) PayExpense(ctx context.Context, expenseID string, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}

	next, ok := claim.NextStatus(domain.EventPay)
	if !ok {
		return nil, fmt.Errorf("%w: only approved claims can be paid, current status %s", apperrors.ErrInvalidStateTransition, claim.Status)
	}

	// Pre-check for a precise rejection message; the authoritative check runs
	// again inside the repository transaction.
	project, err := s.projectSvc.GetProjectByID(ctx, claim.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", claim.ProjectID, err)
	}
	if _, err := s.ledgerSvc.CheckBudget(ctx, project, claim.Type, claim.Amount, nil); err != nil {
		return nil, err
	}

	comment := "Funds disbursed"
	if next == domain.ExpenseReceiptPending {
		comment = "Funds disbursed; submit reimbursement receipts before the project ends"
	}
	if err := s.expenseRepo.PayExpenseWithBudget(ctx, *claim, next, comment, s.clock.Now()); err != nil {
		logger.Warn("Payment failed", "expense_id", expenseID, "error", err)
		return nil, err
	}

	logger.Info("Expense claim paid", "expense_id", expenseID, "new_status", string(next), "amount", claim.Amount.String())
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// SubmitReceipt attaches reimbursement receipts to an advance claim and moves
// it to receipt_audit; claimant only, at least one attachment.
func (s *expenseService) SubmitReceipt(ctx context.Context, expenseID string, attachments []dto.AttachmentRequest, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(attachments) == 0 {
		return nil, ErrReceiptsRequired
	}

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}
	if !claim.OwnedBy(actor.UserID) {
		return nil, ErrNotClaimant
	}
	next, ok := claim.NextStatus(domain.EventSubmitReceipt)
	if !ok {
		return nil, fmt.Errorf("%w: receipts can only be submitted from receipt_pending, current status %s", apperrors.ErrInvalidStateTransition, claim.Status)
	}

	// Attachments first: a stray attachment on a failed flip is harmless, a
	// receipt_audit claim without receipts is not.
	if err := s.expenseRepo.AddAttachments(ctx, expenseID, newAttachments(attachments, expenseID)); err != nil {
		return nil, fmt.Errorf("failed to store receipt attachments: %w", err)
	}
	if err := s.expenseRepo.UpdateExpenseStatus(ctx, expenseID, claim.Status, next, nil, "Receipts submitted, awaiting review", s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to submit receipts: %w", err)
	}

	logger.Info("Receipts submitted", "expense_id", expenseID, "count", len(attachments))
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// AuditReceipt decides a submitted receipt: approved completes the claim,
// rejected sends it to repayment_pending for self-repayment.
func (s *expenseService) AuditReceipt(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !decision.Valid() {
		return nil, ErrInvalidAuditOutcome
	}

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}

	event := domain.EventRejectReceipt
	if decision == domain.DecisionApproved {
		event = domain.EventApproveReceipt
	}
	next, ok := claim.NextStatus(event)
	if !ok {
		return nil, fmt.Errorf("%w: cannot audit receipts for claim in status %s", apperrors.ErrInvalidStateTransition, claim.Status)
	}

	stamp := &portsrepo.AuditStamp{UserID: auditor.UserID, UserName: auditor.UserName}
	if err := s.expenseRepo.UpdateExpenseStatus(ctx, expenseID, claim.Status, next, stamp, comment, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to audit receipts: %w", err)
	}

	logger.Info("Receipts audited", "expense_id", expenseID, "decision", string(decision), "new_status", string(next))
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// RepayExpense settles a repayment_pending claim: the claimant returns the
// advance, and the ledger commit is reversed with an exact negative delta.
func (s *expenseService) RepayExpense(ctx context.Context, expenseID string, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}
	if !claim.OwnedBy(actor.UserID) {
		return nil, ErrNotClaimant
	}
	if _, ok := claim.NextStatus(domain.EventRepay); !ok {
		return nil, fmt.Errorf("%w: only repayment_pending claims can be repaid, current status %s", apperrors.ErrInvalidStateTransition, claim.Status)
	}

	if err := s.expenseRepo.RepayExpenseWithBudget(ctx, *claim, "Claimant repaid the advance", s.clock.Now()); err != nil {
		logger.Error("Repayment failed", "expense_id", expenseID, "error", err)
		return nil, err
	}

	logger.Info("Expense claim repaid", "expense_id", expenseID, "amount", claim.Amount.String())
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// MarkReceiptOverdue is the scheduler entry for the overdue-receipt sweep. It
// re-validates the claim's current status and the project deadline before
// mutating, so it is idempotent and safe against concurrent user transitions.
func (s *expenseService) MarkReceiptOverdue(ctx context.Context, expenseID string) (bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find expense claim %s: %w", expenseID, err)
	}

	next, ok := claim.NextStatus(domain.EventReceiptOverdue)
	if !ok {
		// Already moved on by a user between scan and mutation.
		return false, nil
	}

	project, err := s.projectSvc.GetProjectByID(ctx, claim.ProjectID)
	if err != nil {
		return false, fmt.Errorf("failed to load project %s: %w", claim.ProjectID, err)
	}
	if !project.Expired(s.clock.Now()) {
		return false, nil
	}

	comment := "Project ended without receipts; claimant must repay the advance"
	err = s.expenseRepo.UpdateExpenseStatus(ctx, expenseID, claim.Status, next, nil, comment, s.clock.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			// Lost the race to an interactive transition; skip, don't overwrite.
			return false, nil
		}
		return false, fmt.Errorf("failed to mark claim overdue: %w", err)
	}

	logger.Info("Claim marked repayment_pending by reconciliation", "expense_id", expenseID)
	return true, nil
}

// GetExpenseByID retrieves a single claim with its attachments.
func (s *expenseService) GetExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error) {
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// ListExpenses returns all claims matching the filter.
func (s *expenseService) ListExpenses(ctx context.Context, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error) {
	claims, err := s.expenseRepo.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense claims: %w", err)
	}
	return filterClaims(claims, params), nil
}

// ListExpensesByUser returns the user's claims matching the filter.
func (s *expenseService) ListExpensesByUser(ctx context.Context, userID string, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error) {
	claims, err := s.expenseRepo.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense claims for user %s: %w", userID, err)
	}
	return filterClaims(claims, params), nil
}

// ListExpensesByProject returns all claims against one project.
func (s *expenseService) ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error) {
	return s.expenseRepo.ListExpensesByProject(ctx, projectID)
}

// FindExpensesByStatus returns claims in the given status; used by the scheduler scan.
func (s *expenseService) FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error) {
	return s.expenseRepo.FindExpensesByStatus(ctx, status)
}

func filterClaims(claims []domain.ExpenseClaim, params dto.ListExpensesParams) []domain.ExpenseClaim {
	filtered := make([]domain.ExpenseClaim, 0, len(claims))
	for _, c := range claims {
		if params.Matches(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func newAttachments(reqs []dto.AttachmentRequest, expenseID string) []domain.Attachment {
	if len(reqs) == 0 {
		return nil
	}
	atts := make([]domain.Attachment, len(reqs))
	for i, r := range reqs {
		atts[i] = r.ToDomain()
		atts[i].AttachmentID = uuid.NewString()
		atts[i].ExpenseID = expenseID
	}
	return atts
}
