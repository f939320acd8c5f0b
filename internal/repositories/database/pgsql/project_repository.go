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

type PgxProjectRepository struct {
	BaseRepository
}

// newPgxProjectRepository creates a new repository for project data.
func newPgxProjectRepository(pool *pgxpool.Pool) portsrepo.ProjectRepositoryFacade {
	return &PgxProjectRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ProjectRepositoryFacade = (*PgxProjectRepository)(nil)

const projectColumns = `project_id, name, description, leader_id, leader_name, budget, used_budget, status, audit_status, audit_comment, start_date, end_date, completion_report_path, completion_comment, created_at, created_by, last_updated_at, last_updated_by`

// SaveProject inserts a project together with its budget items in one transaction.
func (r *PgxProjectRepository) SaveProject(ctx context.Context, project domain.Project) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err = tx.Exec(ctx, query,
		project.ProjectID,
		project.Name,
		project.Description,
		project.LeaderID,
		project.LeaderName,
		project.Budget,
		project.UsedBudget,
		project.Status,
		project.AuditStatus,
		project.AuditComment,
		project.StartDate,
		project.EndDate,
		nullString(project.CompletionReportPath),
		project.CompletionComment,
		project.CreatedAt,
		project.CreatedBy,
		project.LastUpdatedAt,
		project.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: project with ID %s already exists", apperrors.ErrDuplicate, project.ProjectID)
		}
		return fmt.Errorf("failed to save project %s: %w", project.ProjectID, err)
	}

	if err := insertBudgetItems(ctx, tx, project.BudgetItems); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindProjectByID retrieves a project and its budget items.
func (r *PgxProjectRepository) FindProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE project_id = $1 AND deleted_at IS NULL;
	`
	project, err := scanProject(r.Pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find project by ID %s: %w", projectID, err)
	}

	items, err := r.findBudgetItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	project.BudgetItems = items
	return project, nil
}

// UpdateProject rewrites master data and budget items; guarded on the stored
// row still being in planning.
func (r *PgxProjectRepository) UpdateProject(ctx context.Context, project domain.Project) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE projects
		SET name = $2, description = $3, budget = $4, start_date = $5, end_date = $6, last_updated_at = $7, last_updated_by = $8
		WHERE project_id = $1 AND status = $9 AND deleted_at IS NULL;
	`
	tag, err := tx.Exec(ctx, query,
		project.ProjectID,
		project.Name,
		project.Description,
		project.Budget,
		project.StartDate,
		project.EndDate,
		project.LastUpdatedAt,
		project.LastUpdatedBy,
		domain.ProjectPlanning,
	)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", project.ProjectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s is not in planning", apperrors.ErrInvalidStateTransition, project.ProjectID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM project_budget_items WHERE project_id = $1;`, project.ProjectID); err != nil {
		return fmt.Errorf("failed to clear budget items for project %s: %w", project.ProjectID, err)
	}
	if err := insertBudgetItems(ctx, tx, project.BudgetItems); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateProjectStatus flips status from expected to next. The guard makes
// concurrent transitions lose cleanly instead of overwriting each other.
func (r *PgxProjectRepository) UpdateProjectStatus(ctx context.Context, projectID string, expected, next domain.ProjectStatus, reportPath, comment *string, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE projects
		SET status = $3,
		    completion_report_path = COALESCE($4, completion_report_path),
		    completion_comment = COALESCE($5, completion_comment),
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE project_id = $1 AND status = $2 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, projectID, expected, next, reportPath, comment, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update status for project %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s is no longer in status %s", apperrors.ErrInvalidStateTransition, projectID, expected)
	}
	return nil
}

// UpdateProjectAudit flips auditStatus from expected to next and optionally
// the lifecycle status in the same statement.
func (r *PgxProjectRepository) UpdateProjectAudit(ctx context.Context, projectID string, expected, next domain.ProjectAuditStatus, newStatus *domain.ProjectStatus, comment string, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE projects
		SET audit_status = $3,
		    status = COALESCE($4, status),
		    audit_comment = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE project_id = $1 AND audit_status = $2 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, projectID, expected, next, newStatus, comment, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update audit status for project %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s is no longer in audit status %s", apperrors.ErrInvalidStateTransition, projectID, expected)
	}
	return nil
}

// FindProjectsByStatus lists projects in one status, budget items included.
func (r *PgxProjectRepository) FindProjectsByStatus(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE status = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC;
	`
	return r.queryProjects(ctx, query, status)
}

// FindExpiredActiveProjects lists active projects whose end date has passed.
func (r *PgxProjectRepository) FindExpiredActiveProjects(ctx context.Context, asOf time.Time) ([]domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE status = $1 AND end_date < $2 AND deleted_at IS NULL
		ORDER BY end_date ASC;
	`
	return r.queryProjects(ctx, query, domain.ProjectActive, asOf)
}

// ListProjects lists all projects.
func (r *PgxProjectRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC;
	`
	return r.queryProjects(ctx, query)
}

// ListProjectsByLeader lists the projects led by one user.
func (r *PgxProjectRepository) ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE leader_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC;
	`
	return r.queryProjects(ctx, query, leaderID)
}

// SoftDeleteProject marks a planning project deleted.
func (r *PgxProjectRepository) SoftDeleteProject(ctx context.Context, projectID, deletedBy string, deletedAt time.Time) error {
	query := `
		UPDATE projects
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
		WHERE project_id = $1 AND status = $4 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, projectID, deletedAt, deletedBy, domain.ProjectPlanning)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s is not deletable", apperrors.ErrInvalidStateTransition, projectID)
	}
	return nil
}

func (r *PgxProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	for i := range projects {
		items, err := r.findBudgetItems(ctx, projects[i].ProjectID)
		if err != nil {
			return nil, err
		}
		projects[i].BudgetItems = items
	}
	return projects, nil
}

func (r *PgxProjectRepository) findBudgetItems(ctx context.Context, projectID string) ([]domain.BudgetItem, error) {
	query := `
		SELECT budget_item_id, project_id, category, amount
		FROM project_budget_items
		WHERE project_id = $1
		ORDER BY category;
	`
	rows, err := r.Pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget items for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var items []domain.BudgetItem
	for rows.Next() {
		var item domain.BudgetItem
		if err := rows.Scan(&item.BudgetItemID, &item.ProjectID, &item.Category, &item.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budget item rows: %w", err)
	}
	return items, nil
}

func insertBudgetItems(ctx context.Context, tx pgx.Tx, items []domain.BudgetItem) error {
	query := `
		INSERT INTO project_budget_items (budget_item_id, project_id, category, amount)
		VALUES ($1, $2, $3, $4);
	`
	for _, item := range items {
		if _, err := tx.Exec(ctx, query, item.BudgetItemID, item.ProjectID, item.Category, item.Amount); err != nil {
			return fmt.Errorf("failed to insert budget item %s: %w", item.BudgetItemID, err)
		}
	}
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var reportPath sql.NullString
	err := row.Scan(
		&p.ProjectID,
		&p.Name,
		&p.Description,
		&p.LeaderID,
		&p.LeaderName,
		&p.Budget,
		&p.UsedBudget,
		&p.Status,
		&p.AuditStatus,
		&p.AuditComment,
		&p.StartDate,
		&p.EndDate,
		&reportPath,
		&p.CompletionComment,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if reportPath.Valid {
		p.CompletionReportPath = reportPath.String
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
