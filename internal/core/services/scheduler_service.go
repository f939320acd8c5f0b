package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/middleware"
)

// reconciliationService periodically sweeps for claims whose receipt window
// closed and for active projects past their end date. Sweeps reuse the
// service entry points, so every mutation re-validates current state and the
// guarded repository writes make repeated runs idempotent. One failing item
// never stops the rest of the sweep.
type reconciliationService struct {
	expenseSvc portssvc.ExpenseSvcFacade
	projectSvc portssvc.ProjectSvcFacade
	clock      portssvc.Clock
	interval   time.Duration
	logger     *slog.Logger
}

// NewReconciliationService creates the background reconciliation service.
func NewReconciliationService(expenseSvc portssvc.ExpenseSvcFacade, projectSvc portssvc.ProjectSvcFacade, clock portssvc.Clock, interval time.Duration, logger *slog.Logger) portssvc.ReconciliationSvcFacade {
	return &reconciliationService{
		expenseSvc: expenseSvc,
		projectSvc: projectSvc,
		clock:      clock,
		interval:   interval,
		logger:     logger,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately so a restart never waits a full interval to catch up.
func (s *reconciliationService) Start(ctx context.Context) {
	ctx = middleware.ContextWithLogger(ctx, s.logger)
	s.logger.Info("Reconciliation scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation scheduler stopped")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *reconciliationService) runAndLog(ctx context.Context) {
	summary := s.RunSweeps(ctx)
	s.logger.Info("Reconciliation sweep finished",
		"receipts_scanned", summary.OverdueReceipts.Scanned,
		"receipts_transitioned", summary.OverdueReceipts.Transitioned,
		"projects_scanned", summary.ExpiredProjects.Scanned,
		"projects_transitioned", summary.ExpiredProjects.Transitioned,
		"failures", summary.FailureCount(),
	)
}

// RunSweeps executes both sweeps once and reports what happened.
func (s *reconciliationService) RunSweeps(ctx context.Context) portssvc.SweepSummary {
	return portssvc.SweepSummary{
		OverdueReceipts: s.sweepOverdueReceipts(ctx),
		ExpiredProjects: s.sweepExpiredProjects(ctx),
	}
}

// sweepOverdueReceipts finds receipt_pending claims and asks the expense
// service to mark each overdue. The service skips claims whose project has
// not ended or whose status moved since the scan.
func (s *reconciliationService) sweepOverdueReceipts(ctx context.Context) portssvc.SweepResult {
	var result portssvc.SweepResult

	claims, err := s.expenseSvc.FindExpensesByStatus(ctx, domain.ExpenseReceiptPending)
	if err != nil {
		s.logger.Error("Overdue receipt scan failed", "error", err)
		result.Failed++
		return result
	}

	for _, claim := range claims {
		result.Scanned++
		transitioned, err := s.expenseSvc.MarkReceiptOverdue(ctx, claim.ExpenseID)
		switch {
		case err != nil:
			s.logger.Error("Failed to mark claim overdue", "expense_id", claim.ExpenseID, "error", err)
			result.Failed++
		case transitioned:
			result.Transitioned++
		default:
			result.Skipped++
		}
	}
	return result
}

// sweepExpiredProjects finds active projects past their end date and moves
// each to pending_completion.
func (s *reconciliationService) sweepExpiredProjects(ctx context.Context) portssvc.SweepResult {
	var result portssvc.SweepResult

	projects, err := s.projectSvc.FindExpiredActiveProjects(ctx)
	if err != nil {
		s.logger.Error("Expired project scan failed", "error", err)
		result.Failed++
		return result
	}

	for _, project := range projects {
		result.Scanned++
		transitioned, err := s.projectSvc.ExpireProject(ctx, project.ProjectID)
		switch {
		case err != nil:
			s.logger.Error("Failed to expire project", "project_id", project.ProjectID, "error", err)
			result.Failed++
		case transitioned:
			result.Transitioned++
		default:
			result.Skipped++
		}
	}
	return result
}
