package services

import (
	"log/slog"
	"time"

	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
)

// realClock reads the wall clock in UTC.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewRealClock returns the production clock.
func NewRealClock() portssvc.Clock { return realClock{} }

// NewServiceContainer wires the full service graph on top of the repositories.
func NewServiceContainer(repos portsrepo.RepositoryContainer, clock portssvc.Clock, sweepInterval time.Duration, logger *slog.Logger) *portssvc.ServiceContainer {
	ledgerSvc := NewLedgerService(repos.Expense)
	projectSvc := NewProjectService(repos.Project, clock)
	expenseSvc := NewExpenseService(repos.Expense, projectSvc, ledgerSvc, clock)
	transferSvc := NewTransferService(repos.Transfer, projectSvc, ledgerSvc, clock)
	arrivalSvc := NewFundArrivalService(repos.FundArrival, projectSvc, clock)
	reconSvc := NewReconciliationService(expenseSvc, projectSvc, clock, sweepInterval, logger)

	return &portssvc.ServiceContainer{
		Ledger:         ledgerSvc,
		Project:        projectSvc,
		Expense:        expenseSvc,
		Transfer:       transferSvc,
		FundArrival:    arrivalSvc,
		Reconciliation: reconSvc,
	}
}
