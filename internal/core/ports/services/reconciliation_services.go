package services

import "context"

// SweepResult reports one reconciliation sweep for observability.
type SweepResult struct {
	Scanned      int
	Transitioned int
	Skipped      int
	Failed       int
}

// SweepSummary aggregates the two sweeps of a scheduler run.
type SweepSummary struct {
	OverdueReceipts SweepResult
	ExpiredProjects SweepResult
}

// FailureCount is the total number of per-item failures across both sweeps.
func (s SweepSummary) FailureCount() int {
	return s.OverdueReceipts.Failed + s.ExpiredProjects.Failed
}

// ReconciliationSvcFacade is the deadline reconciliation scheduler. Sweeps are
// idempotent and safe to run concurrently with interactive transitions: every
// candidate is re-validated against its current state immediately before
// mutation, and per-item failures never abort a sweep.
type ReconciliationSvcFacade interface {
	// RunSweeps performs one pass of both sweeps and returns the summary.
	RunSweeps(ctx context.Context) SweepSummary
	// Start runs sweeps on the configured interval until ctx is cancelled.
	Start(ctx context.Context)
}
