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

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
)

type PgxTransferRepository struct {
	BaseRepository
}

// newPgxTransferRepository creates a new repository for fund transfer data.
func newPgxTransferRepository(pool *pgxpool.Pool) portsrepo.TransferRepositoryFacade {
	return &PgxTransferRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransferRepositoryFacade = (*PgxTransferRepository)(nil)

const transferColumns = `transfer_id, title, project_id, project_name, amount, from_year, to_year, reason, status, apply_user_id, apply_user_name, apply_date, audit_user_id, audit_user_name, audit_comment, audit_time, created_at, created_by, last_updated_at, last_updated_by`

// SaveTransfer inserts a new transfer request.
func (r *PgxTransferRepository) SaveTransfer(ctx context.Context, transfer domain.FundTransfer) error {
	query := `
		INSERT INTO fund_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err := r.Pool.Exec(ctx, query,
		transfer.TransferID,
		transfer.Title,
		transfer.ProjectID,
		transfer.ProjectName,
		transfer.Amount,
		transfer.FromYear,
		transfer.ToYear,
		transfer.Reason,
		transfer.Status,
		transfer.ApplyUserID,
		transfer.ApplyUserName,
		transfer.ApplyDate,
		transfer.AuditUserID,
		transfer.AuditUserName,
		transfer.AuditComment,
		transfer.AuditTime,
		transfer.CreatedAt,
		transfer.CreatedBy,
		transfer.LastUpdatedAt,
		transfer.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: transfer with ID %s already exists", apperrors.ErrDuplicate, transfer.TransferID)
		}
		return fmt.Errorf("failed to save transfer %s: %w", transfer.TransferID, err)
	}
	return nil
}

// FindTransferByID retrieves a transfer by its ID.
func (r *PgxTransferRepository) FindTransferByID(ctx context.Context, transferID string) (*domain.FundTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM fund_transfers
		WHERE transfer_id = $1 AND deleted_at IS NULL;
	`
	transfer, err := scanTransfer(r.Pool.QueryRow(ctx, query, transferID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transfer by ID %s: %w", transferID, err)
	}
	return transfer, nil
}

// UpdateTransfer rewrites transfer fields while the stored row is still pending.
func (r *PgxTransferRepository) UpdateTransfer(ctx context.Context, transfer domain.FundTransfer) error {
	query := `
		UPDATE fund_transfers
		SET title = $2, amount = $3, from_year = $4, to_year = $5, reason = $6, last_updated_at = $7, last_updated_by = $8
		WHERE transfer_id = $1 AND status = $9 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query,
		transfer.TransferID,
		transfer.Title,
		transfer.Amount,
		transfer.FromYear,
		transfer.ToYear,
		transfer.Reason,
		transfer.LastUpdatedAt,
		transfer.LastUpdatedBy,
		domain.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer %s: %w", transfer.TransferID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transfer %s is no longer pending", apperrors.ErrInvalidStateTransition, transfer.TransferID)
	}
	return nil
}

// UpdateTransferStatus performs a guarded flip; used for the reject path.
func (r *PgxTransferRepository) UpdateTransferStatus(ctx context.Context, transferID string, expected, next domain.TransferStatus, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
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
		UPDATE fund_transfers
		SET status = $3,
		    audit_user_id = COALESCE($4, audit_user_id),
		    audit_user_name = COALESCE($5, audit_user_name),
		    audit_comment = $6,
		    audit_time = COALESCE($7, audit_time),
		    last_updated_at = $8,
		    last_updated_by = $9
		WHERE transfer_id = $1 AND status = $2 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, transferID, expected, next, auditUserID, auditUserName, comment, auditTime, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update status for transfer %s: %w", transferID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transfer %s is no longer in status %s", apperrors.ErrInvalidStateTransition, transferID, expected)
	}
	return nil
}

// ApproveTransferWithBudget verifies the project's remaining budget under the
// project row lock, flips pending to approved and commits the amount into
// used budget in one transaction. On insufficient budget nothing is written.
func (r *PgxTransferRepository) ApproveTransferWithBudget(ctx context.Context, transfer domain.FundTransfer, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	budget, usedBudget, err := lockProjectBudget(ctx, tx, transfer.ProjectID)
	if err != nil {
		return err
	}
	if transfer.Amount.GreaterThan(budget.Sub(usedBudget)) {
		return apperrors.NewInsufficientBudgetError("", budget.Sub(usedBudget))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fund_transfers
		SET status = $3, audit_user_id = $4, audit_user_name = $5, audit_comment = $6, audit_time = $7, last_updated_at = $7, last_updated_by = $4
		WHERE transfer_id = $1 AND status = $2 AND deleted_at IS NULL;
	`, transfer.TransferID, domain.TransferPending, domain.TransferApproved, audit.UserID, audit.UserName, comment, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to approve transfer %s: %w", transfer.TransferID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transfer %s is no longer pending", apperrors.ErrInvalidStateTransition, transfer.TransferID)
	}

	if err := commitUsedBudget(ctx, tx, transfer.ProjectID, transfer.Amount, updatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// ListTransfers lists all transfers.
func (r *PgxTransferRepository) ListTransfers(ctx context.Context) ([]domain.FundTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM fund_transfers
		WHERE deleted_at IS NULL
		ORDER BY apply_date DESC;
	`
	return r.queryTransfers(ctx, query)
}

// ListTransfersByUser lists the transfers filed by one user.
func (r *PgxTransferRepository) ListTransfersByUser(ctx context.Context, userID string) ([]domain.FundTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM fund_transfers
		WHERE apply_user_id = $1 AND deleted_at IS NULL
		ORDER BY apply_date DESC;
	`
	return r.queryTransfers(ctx, query, userID)
}

// SoftDeleteTransfer marks a pending transfer deleted.
func (r *PgxTransferRepository) SoftDeleteTransfer(ctx context.Context, transferID, deletedBy string, deletedAt time.Time) error {
	query := `
		UPDATE fund_transfers
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
		WHERE transfer_id = $1 AND status = $4 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, transferID, deletedAt, deletedBy, domain.TransferPending)
	if err != nil {
		return fmt.Errorf("failed to delete transfer %s: %w", transferID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transfer %s is not deletable", apperrors.ErrInvalidStateTransition, transferID)
	}
	return nil
}

func (r *PgxTransferRepository) queryTransfers(ctx context.Context, query string, args ...any) ([]domain.FundTransfer, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.FundTransfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		transfers = append(transfers, *transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}
	return transfers, nil
}

func scanTransfer(row rowScanner) (*domain.FundTransfer, error) {
	var t domain.FundTransfer
	var auditUserID, auditUserName, auditComment sql.NullString
	var auditTime sql.NullTime
	err := row.Scan(
		&t.TransferID,
		&t.Title,
		&t.ProjectID,
		&t.ProjectName,
		&t.Amount,
		&t.FromYear,
		&t.ToYear,
		&t.Reason,
		&t.Status,
		&t.ApplyUserID,
		&t.ApplyUserName,
		&t.ApplyDate,
		&auditUserID,
		&auditUserName,
		&auditComment,
		&auditTime,
		&t.CreatedAt,
		&t.CreatedBy,
		&t.LastUpdatedAt,
		&t.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if auditUserID.Valid {
		t.AuditUserID = &auditUserID.String
	}
	if auditUserName.Valid {
		t.AuditUserName = &auditUserName.String
	}
	if auditComment.Valid {
		t.AuditComment = auditComment.String
	}
	if auditTime.Valid {
		at := auditTime.Time
		t.AuditTime = &at
	}
	return &t, nil
}
