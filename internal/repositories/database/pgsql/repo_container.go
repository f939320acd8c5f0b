package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
)

// NewRepositoryContainer wires the pgx-backed repositories.
func NewRepositoryContainer(dbPool *pgxpool.Pool) portsrepo.RepositoryContainer {
	return portsrepo.RepositoryContainer{
		Project:     newPgxProjectRepository(dbPool),
		Expense:     newPgxExpenseRepository(dbPool),
		Transfer:    newPgxTransferRepository(dbPool),
		FundArrival: newPgxFundArrivalRepository(dbPool),
	}
}
