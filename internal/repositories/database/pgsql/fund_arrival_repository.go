package pgsql

import (
	"context"
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

type PgxFundArrivalRepository struct {
	BaseRepository
}

// newPgxFundArrivalRepository creates a new repository for fund arrival data.
func newPgxFundArrivalRepository(pool *pgxpool.Pool) portsrepo.FundArrivalRepositoryFacade {
	return &PgxFundArrivalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.FundArrivalRepositoryFacade = (*PgxFundArrivalRepository)(nil)

const arrivalColumns = `arrival_id, project_id, project_name, amount, year, arrival_date, voucher_path, remark, status, apply_user_id, apply_user_name, created_at, created_by, last_updated_at, last_updated_by`

// SaveFundArrival inserts a new arrival record.
func (r *PgxFundArrivalRepository) SaveFundArrival(ctx context.Context, arrival domain.FundArrival) error {
	query := `
		INSERT INTO fund_arrivals (` + arrivalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		arrival.ArrivalID,
		arrival.ProjectID,
		arrival.ProjectName,
		arrival.Amount,
		arrival.Year,
		arrival.ArrivalDate,
		arrival.VoucherPath,
		arrival.Remark,
		arrival.Status,
		arrival.ApplyUserID,
		arrival.ApplyUserName,
		arrival.CreatedAt,
		arrival.CreatedBy,
		arrival.LastUpdatedAt,
		arrival.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: fund arrival with ID %s already exists", apperrors.ErrDuplicate, arrival.ArrivalID)
		}
		return fmt.Errorf("failed to save fund arrival %s: %w", arrival.ArrivalID, err)
	}
	return nil
}

// FindFundArrivalByID retrieves an arrival record by its ID.
func (r *PgxFundArrivalRepository) FindFundArrivalByID(ctx context.Context, arrivalID string) (*domain.FundArrival, error) {
	query := `
		SELECT ` + arrivalColumns + `
		FROM fund_arrivals
		WHERE arrival_id = $1 AND deleted_at IS NULL;
	`
	arrival, err := scanArrival(r.Pool.QueryRow(ctx, query, arrivalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find fund arrival by ID %s: %w", arrivalID, err)
	}
	return arrival, nil
}

// ListFundArrivalsByProject lists a project's arrival records.
func (r *PgxFundArrivalRepository) ListFundArrivalsByProject(ctx context.Context, projectID string) ([]domain.FundArrival, error) {
	query := `
		SELECT ` + arrivalColumns + `
		FROM fund_arrivals
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY arrival_date DESC;
	`
	rows, err := r.Pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund arrivals for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var arrivals []domain.FundArrival
	for rows.Next() {
		arrival, err := scanArrival(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund arrival row: %w", err)
		}
		arrivals = append(arrivals, *arrival)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund arrival rows: %w", err)
	}
	return arrivals, nil
}

// SumFundArrivalsByProject totals arrival amounts for a project, optionally
// excluding one record.
func (r *PgxFundArrivalRepository) SumFundArrivalsByProject(ctx context.Context, projectID string, excludeArrivalID *string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM fund_arrivals
		WHERE project_id = $1 AND deleted_at IS NULL
		  AND ($2::text IS NULL OR arrival_id <> $2);
	`
	var total decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, projectID, excludeArrivalID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum fund arrivals for project %s: %w", projectID, err)
	}
	return total, nil
}

// UpdateFundArrivalStatus performs a guarded status flip.
func (r *PgxFundArrivalRepository) UpdateFundArrivalStatus(ctx context.Context, arrivalID string, expected, next domain.ArrivalStatus, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE fund_arrivals
		SET status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE arrival_id = $1 AND status = $2 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, arrivalID, expected, next, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update status for fund arrival %s: %w", arrivalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: fund arrival %s is no longer in status %s", apperrors.ErrInvalidStateTransition, arrivalID, expected)
	}
	return nil
}

// SoftDeleteFundArrival marks a pending arrival record deleted.
func (r *PgxFundArrivalRepository) SoftDeleteFundArrival(ctx context.Context, arrivalID, deletedBy string, deletedAt time.Time) error {
	query := `
		UPDATE fund_arrivals
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
		WHERE arrival_id = $1 AND status = $4 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, arrivalID, deletedAt, deletedBy, domain.ArrivalPending)
	if err != nil {
		return fmt.Errorf("failed to delete fund arrival %s: %w", arrivalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: fund arrival %s is not deletable", apperrors.ErrInvalidStateTransition, arrivalID)
	}
	return nil
}

func scanArrival(row rowScanner) (*domain.FundArrival, error) {
	var a domain.FundArrival
	err := row.Scan(
		&a.ArrivalID,
		&a.ProjectID,
		&a.ProjectName,
		&a.Amount,
		&a.Year,
		&a.ArrivalDate,
		&a.VoucherPath,
		&a.Remark,
		&a.Status,
		&a.ApplyUserID,
		&a.ApplyUserName,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
