package services

import "time"

// Actor identifies the user performing a workflow operation. It is supplied
// explicitly by the authentication collaborator (no ambient security context).
type Actor struct {
	UserID   string
	UserName string
}

// Clock abstracts wall-clock reads so deadline-driven transitions are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Ledger         LedgerSvcFacade
	Project        ProjectSvcFacade
	Expense        ExpenseSvcFacade
	Transfer       TransferSvcFacade
	FundArrival    FundArrivalSvcFacade
	Reconciliation ReconciliationSvcFacade
}
