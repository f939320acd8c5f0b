package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
)

type PgxExpenseRepository struct {
	BaseRepository
}

// newPgxExpenseRepository creates a new repository for expense claim data.
func newPgxExpenseRepository(pool *pgxpool.Pool) portsrepo.ExpenseRepositoryFacade {
	return &PgxExpenseRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)

const expenseColumns = `expense_id, title, project_id, project_name, category, type, amount, purpose, status, apply_user_id, apply_user_name, apply_date, audit_user_id, audit_user_name, audit_comment, audit_time, created_at, created_by, last_updated_at, last_updated_by`

// committedStatusStrings feeds the ANY clause of committed-sum queries.
func committedStatusStrings() []string {
	statuses := domain.CommittedExpenseStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// SaveExpense inserts a claim together with its attachments in one transaction.
func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, claim domain.ExpenseClaim) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO expense_apply (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err = tx.Exec(ctx, query,
		claim.ExpenseID,
		claim.Title,
		claim.ProjectID,
		claim.ProjectName,
		claim.Category,
		claim.Type,
		claim.Amount,
		claim.Purpose,
		claim.Status,
		claim.ApplyUserID,
		claim.ApplyUserName,
		claim.ApplyDate,
		claim.AuditUserID,
		claim.AuditUserName,
		claim.AuditComment,
		claim.AuditTime,
		claim.CreatedAt,
		claim.CreatedBy,
		claim.LastUpdatedAt,
		claim.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: expense claim with ID %s already exists", apperrors.ErrDuplicate, claim.ExpenseID)
		}
		return fmt.Errorf("failed to save expense claim %s: %w", claim.ExpenseID, err)
	}

	if err := insertAttachments(ctx, tx, claim.Attachments); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindExpenseByID retrieves a claim and its attachments.
func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_apply
		WHERE expense_id = $1 AND deleted_at IS NULL;
	`
	claim, err := scanExpense(r.Pool.QueryRow(ctx, query, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find expense claim by ID %s: %w", expenseID, err)
	}

	attachments, err := r.findAttachments(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	claim.Attachments = attachments
	return claim, nil
}

// UpdateExpense rewrites claim fields while the stored row is still pending.
func (r *PgxExpenseRepository) UpdateExpense(ctx context.Context, claim domain.ExpenseClaim, replaceAttachments bool) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE expense_apply
		SET title = $2, project_id = $3, project_name = $4, type = $5, amount = $6, purpose = $7, last_updated_at = $8, last_updated_by = $9
		WHERE expense_id = $1 AND status = $10 AND deleted_at IS NULL;
	`
	tag, err := tx.Exec(ctx, query,
		claim.ExpenseID,
		claim.Title,
		claim.ProjectID,
		claim.ProjectName,
		claim.Type,
		claim.Amount,
		claim.Purpose,
		claim.LastUpdatedAt,
		claim.LastUpdatedBy,
		domain.ExpensePending,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense claim %s: %w", claim.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense claim %s is no longer pending", apperrors.ErrInvalidStateTransition, claim.ExpenseID)
	}

	if replaceAttachments {
		if _, err := tx.Exec(ctx, `DELETE FROM expense_attachments WHERE expense_id = $1;`, claim.ExpenseID); err != nil {
			return fmt.Errorf("failed to clear attachments for expense claim %s: %w", claim.ExpenseID, err)
		}
		if err := insertAttachments(ctx, tx, claim.Attachments); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

// UpdateExpenseStatus performs a guarded status flip with optional audit stamp.
func (r *PgxExpenseRepository) UpdateExpenseStatus(ctx context.Context, expenseID string, expected, next domain.ExpenseStatus, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
	var auditUserID, auditUserName *string
	var auditTime *time.Time
	updatedBy := "system"
	if audit != nil {
		auditUserID = &audit.UserID
		auditUserName = &audit.UserName
		auditTime = &updatedAt
		updatedBy = audit.UserID
	}

	query := `
		UPDATE expense_apply
		SET status = $3,
		    audit_user_id = COALESCE($4, audit_user_id),
		    audit_user_name = COALESCE($5, audit_user_name),
		    audit_comment = $6,
		    audit_time = COALESCE($7, audit_time),
		    last_updated_at = $8,
		    last_updated_by = $9
		WHERE expense_id = $1 AND status = $2 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, expenseID, expected, next, auditUserID, auditUserName, comment, auditTime, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update status for expense claim %s: %w", expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense claim %s is no longer in status %s", apperrors.ErrInvalidStateTransition, expenseID, expected)
	}
	return nil
}

// PayExpenseWithBudget flips an approved claim to its paid-side status and
// commits the amount into the project's used budget in one transaction. The
// project row lock serializes all ledger commits for the project, and both
// budget checks run again under the lock, so concurrent payments cannot
// overspend a category or the project total.
func (r *PgxExpenseRepository) PayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, next domain.ExpenseStatus, comment string, updatedAt time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	budget, usedBudget, err := lockProjectBudget(ctx, tx, claim.ProjectID)
	if err != nil {
		return err
	}
	if claim.Amount.GreaterThan(budget.Sub(usedBudget)) {
		return apperrors.NewInsufficientBudgetError("", budget.Sub(usedBudget))
	}

	label, ok := domain.ExpenseTypeLabel(claim.Type)
	if !ok {
		return fmt.Errorf("%w: unknown spending type %q", apperrors.ErrValidation, claim.Type)
	}
	var itemAmount decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT amount FROM project_budget_items WHERE project_id = $1 AND category = $2;`,
		claim.ProjectID, label,
	).Scan(&itemAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: spending type %q (%s) is not among the project's budget items", apperrors.ErrValidation, claim.Type, label)
		}
		return fmt.Errorf("failed to load budget item for project %s: %w", claim.ProjectID, err)
	}

	var committed decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expense_apply
		WHERE project_id = $1 AND type = $2 AND status = ANY($3) AND deleted_at IS NULL;
	`, claim.ProjectID, claim.Type, committedStatusStrings()).Scan(&committed)
	if err != nil {
		return fmt.Errorf("failed to sum committed amounts for project %s: %w", claim.ProjectID, err)
	}
	if claim.Amount.GreaterThan(itemAmount.Sub(committed)) {
		return apperrors.NewInsufficientBudgetError(label, itemAmount.Sub(committed))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE expense_apply
		SET status = $3, audit_comment = $4, last_updated_at = $5, last_updated_by = 'system'
		WHERE expense_id = $1 AND status = $2 AND deleted_at IS NULL;
	`, claim.ExpenseID, domain.ExpenseApproved, next, comment, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to mark expense claim %s paid: %w", claim.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense claim %s is no longer approved", apperrors.ErrInvalidStateTransition, claim.ExpenseID)
	}

	if err := commitUsedBudget(ctx, tx, claim.ProjectID, claim.Amount, updatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// RepayExpenseWithBudget flips repayment_pending to repaid and reverses the
// claim's ledger commit with an exact negative delta, in one transaction.
func (r *PgxExpenseRepository) RepayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, comment string, updatedAt time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, _, err := lockProjectBudget(ctx, tx, claim.ProjectID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE expense_apply
		SET status = $3, audit_comment = $4, last_updated_at = $5, last_updated_by = $6
		WHERE expense_id = $1 AND status = $2 AND deleted_at IS NULL;
	`, claim.ExpenseID, domain.ExpenseRepaymentPending, domain.ExpenseRepaid, comment, updatedAt, claim.ApplyUserID)
	if err != nil {
		return fmt.Errorf("failed to mark expense claim %s repaid: %w", claim.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense claim %s is no longer awaiting repayment", apperrors.ErrInvalidStateTransition, claim.ExpenseID)
	}

	if err := commitUsedBudget(ctx, tx, claim.ProjectID, claim.Amount.Neg(), updatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// SumCommittedAmountByType totals claim amounts in committed statuses for one
// project and spending type, optionally excluding one claim.
func (r *PgxExpenseRepository) SumCommittedAmountByType(ctx context.Context, projectID, expenseType string, excludeExpenseID *string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM expense_apply
		WHERE project_id = $1 AND type = $2 AND status = ANY($3) AND deleted_at IS NULL
		  AND ($4::text IS NULL OR expense_id <> $4);
	`
	var total decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, projectID, expenseType, committedStatusStrings(), excludeExpenseID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum committed amounts for project %s: %w", projectID, err)
	}
	return total, nil
}

// AddAttachments appends attachments to an existing claim.
func (r *PgxExpenseRepository) AddAttachments(ctx context.Context, expenseID string, attachments []domain.Attachment) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := insertAttachments(ctx, tx, attachments); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// FindExpensesByStatus lists claims in one status; used by the scheduler scan.
func (r *PgxExpenseRepository) FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_apply
		WHERE status = $1 AND deleted_at IS NULL
		ORDER BY apply_date ASC;
	`
	return r.queryExpenses(ctx, query, status)
}

// ListExpensesByUser lists the claims filed by one user.
func (r *PgxExpenseRepository) ListExpensesByUser(ctx context.Context, userID string) ([]domain.ExpenseClaim, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_apply
		WHERE apply_user_id = $1 AND deleted_at IS NULL
		ORDER BY apply_date DESC;
	`
	return r.queryExpenses(ctx, query, userID)
}

// ListExpensesByProject lists all claims against one project.
func (r *PgxExpenseRepository) ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_apply
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY apply_date DESC;
	`
	return r.queryExpenses(ctx, query, projectID)
}

// ListExpenses lists all claims.
func (r *PgxExpenseRepository) ListExpenses(ctx context.Context) ([]domain.ExpenseClaim, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_apply
		WHERE deleted_at IS NULL
		ORDER BY apply_date DESC;
	`
	return r.queryExpenses(ctx, query)
}

// SoftDeleteExpense marks a pending claim deleted.
func (r *PgxExpenseRepository) SoftDeleteExpense(ctx context.Context, expenseID, deletedBy string, deletedAt time.Time) error {
	query := `
		UPDATE expense_apply
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
		WHERE expense_id = $1 AND status = $4 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, expenseID, deletedAt, deletedBy, domain.ExpensePending)
	if err != nil {
		return fmt.Errorf("failed to delete expense claim %s: %w", expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense claim %s is not deletable", apperrors.ErrInvalidStateTransition, expenseID)
	}
	return nil
}

func (r *PgxExpenseRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]domain.ExpenseClaim, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.ExpenseClaim
	for rows.Next() {
		claim, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense claim row: %w", err)
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense claim rows: %w", err)
	}

	for i := range claims {
		attachments, err := r.findAttachments(ctx, claims[i].ExpenseID)
		if err != nil {
			return nil, err
		}
		claims[i].Attachments = attachments
	}
	return claims, nil
}

func (r *PgxExpenseRepository) findAttachments(ctx context.Context, expenseID string) ([]domain.Attachment, error) {
	query := `
		SELECT attachment_id, expense_id, name, path, file_size, file_type
		FROM expense_attachments
		WHERE expense_id = $1
		ORDER BY attachment_id;
	`
	rows, err := r.Pool.Query(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments for expense claim %s: %w", expenseID, err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.AttachmentID, &a.ExpenseID, &a.Name, &a.Path, &a.FileSize, &a.FileType); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return attachments, nil
}

func insertAttachments(ctx context.Context, tx pgx.Tx, attachments []domain.Attachment) error {
	query := `
		INSERT INTO expense_attachments (attachment_id, expense_id, name, path, file_size, file_type)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, a := range attachments {
		if _, err := tx.Exec(ctx, query, a.AttachmentID, a.ExpenseID, a.Name, a.Path, a.FileSize, a.FileType); err != nil {
			return fmt.Errorf("failed to insert attachment %s: %w", a.AttachmentID, err)
		}
	}
	return nil
}

// lockProjectBudget takes the project row lock that serializes ledger commits
// and returns the budget figures current under that lock.
func lockProjectBudget(ctx context.Context, tx pgx.Tx, projectID string) (budget, usedBudget decimal.Decimal, err error) {
	err = tx.QueryRow(ctx,
		`SELECT budget, used_budget FROM projects WHERE project_id = $1 AND deleted_at IS NULL FOR UPDATE;`,
		projectID,
	).Scan(&budget, &usedBudget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, apperrors.ErrNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to lock project %s: %w", projectID, err)
	}
	return budget, usedBudget, nil
}

// commitUsedBudget applies a signed delta to the project's used budget. The
// caller holds the project row lock.
func commitUsedBudget(ctx context.Context, tx pgx.Tx, projectID string, delta decimal.Decimal, updatedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE projects
		SET used_budget = used_budget + $2, last_updated_at = $3
		WHERE project_id = $1 AND deleted_at IS NULL;
	`, projectID, delta, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to apply budget delta for project %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanExpense(row rowScanner) (*domain.ExpenseClaim, error) {
	var c domain.ExpenseClaim
	var auditUserID, auditUserName sql.NullString
	var auditComment sql.NullString
	var auditTime sql.NullTime
	err := row.Scan(
		&c.ExpenseID,
		&c.Title,
		&c.ProjectID,
		&c.ProjectName,
		&c.Category,
		&c.Type,
		&c.Amount,
		&c.Purpose,
		&c.Status,
		&c.ApplyUserID,
		&c.ApplyUserName,
		&c.ApplyDate,
		&auditUserID,
		&auditUserName,
		&auditComment,
		&auditTime,
		&c.CreatedAt,
		&c.CreatedBy,
		&c.LastUpdatedAt,
		&c.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if auditUserID.Valid {
		c.AuditUserID = &auditUserID.String
	}
	if auditUserName.Valid {
		c.AuditUserName = &auditUserName.String
	}
	if auditComment.Valid {
		c.AuditComment = auditComment.String
	}
	if auditTime.Valid {
		t := auditTime.Time
		c.AuditTime = &t
	}
	return &c, nil
}
