package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/core/services"
)

type ReconciliationServiceTestSuite struct {
	suite.Suite
	mockExpenseSvc *MockExpenseService
	mockProjectSvc *MockProjectService
	service        portssvc.ReconciliationSvcFacade
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.mockExpenseSvc = new(MockExpenseService)
	suite.mockProjectSvc = new(MockProjectService)
	clock := fixedClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.service = services.NewReconciliationService(suite.mockExpenseSvc, suite.mockProjectSvc, clock, time.Hour, logger)
}

func (suite *ReconciliationServiceTestSuite) TestRunSweeps_CountsOutcomes() {
	ctx := context.Background()
	claims := []domain.ExpenseClaim{
		{ExpenseID: "claim-1", Status: domain.ExpenseReceiptPending},
		{ExpenseID: "claim-2", Status: domain.ExpenseReceiptPending},
		{ExpenseID: "claim-3", Status: domain.ExpenseReceiptPending},
	}
	projects := []domain.Project{
		{ProjectID: "proj-1", Status: domain.ProjectActive},
		{ProjectID: "proj-2", Status: domain.ProjectActive},
	}

	suite.mockExpenseSvc.On("FindExpensesByStatus", ctx, domain.ExpenseReceiptPending).Return(claims, nil).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-1").Return(true, nil).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-2").Return(false, nil).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-3").Return(false, errors.New("db down")).Once()

	suite.mockProjectSvc.On("FindExpiredActiveProjects", ctx).Return(projects, nil).Once()
	suite.mockProjectSvc.On("ExpireProject", ctx, "proj-1").Return(true, nil).Once()
	suite.mockProjectSvc.On("ExpireProject", ctx, "proj-2").Return(false, nil).Once()

	summary := suite.service.RunSweeps(ctx)

	suite.Equal(3, summary.OverdueReceipts.Scanned)
	suite.Equal(1, summary.OverdueReceipts.Transitioned)
	suite.Equal(1, summary.OverdueReceipts.Skipped)
	suite.Equal(1, summary.OverdueReceipts.Failed)

	suite.Equal(2, summary.ExpiredProjects.Scanned)
	suite.Equal(1, summary.ExpiredProjects.Transitioned)
	suite.Equal(1, summary.ExpiredProjects.Skipped)
	suite.Equal(0, summary.ExpiredProjects.Failed)

	suite.Equal(1, summary.FailureCount())
	suite.mockExpenseSvc.AssertExpectations(suite.T())
	suite.mockProjectSvc.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestRunSweeps_FailingItemDoesNotStopSweep() {
	ctx := context.Background()
	claims := []domain.ExpenseClaim{
		{ExpenseID: "claim-1", Status: domain.ExpenseReceiptPending},
		{ExpenseID: "claim-2", Status: domain.ExpenseReceiptPending},
	}

	suite.mockExpenseSvc.On("FindExpensesByStatus", ctx, domain.ExpenseReceiptPending).Return(claims, nil).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-1").Return(false, errors.New("deadlock")).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-2").Return(true, nil).Once()
	suite.mockProjectSvc.On("FindExpiredActiveProjects", ctx).Return([]domain.Project{}, nil).Once()

	summary := suite.service.RunSweeps(ctx)

	suite.Equal(1, summary.OverdueReceipts.Failed)
	suite.Equal(1, summary.OverdueReceipts.Transitioned, "later items still processed")
	suite.mockExpenseSvc.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestRunSweeps_ScanFailureCountsOnce() {
	ctx := context.Background()

	suite.mockExpenseSvc.On("FindExpensesByStatus", ctx, domain.ExpenseReceiptPending).
		Return(nil, errors.New("db down")).Once()
	suite.mockProjectSvc.On("FindExpiredActiveProjects", ctx).Return([]domain.Project{}, nil).Once()

	summary := suite.service.RunSweeps(ctx)

	suite.Equal(0, summary.OverdueReceipts.Scanned)
	suite.Equal(1, summary.OverdueReceipts.Failed)
	suite.Equal(0, summary.ExpiredProjects.Failed, "project sweep still runs")
}

func (suite *ReconciliationServiceTestSuite) TestRunSweeps_SecondRunIsQuietAfterTransitions() {
	ctx := context.Background()
	claims := []domain.ExpenseClaim{{ExpenseID: "claim-1", Status: domain.ExpenseReceiptPending}}

	suite.mockExpenseSvc.On("FindExpensesByStatus", ctx, domain.ExpenseReceiptPending).Return(claims, nil).Once()
	suite.mockExpenseSvc.On("MarkReceiptOverdue", ctx, "claim-1").Return(true, nil).Once()
	suite.mockProjectSvc.On("FindExpiredActiveProjects", ctx).Return([]domain.Project{}, nil).Twice()

	first := suite.service.RunSweeps(ctx)
	suite.Equal(1, first.OverdueReceipts.Transitioned)

	// The transitioned claim no longer matches the scan on the next run.
	suite.mockExpenseSvc.On("FindExpensesByStatus", ctx, domain.ExpenseReceiptPending).
		Return([]domain.ExpenseClaim{}, nil).Once()

	second := suite.service.RunSweeps(ctx)
	suite.Equal(0, second.OverdueReceipts.Scanned)
	suite.Equal(0, second.OverdueReceipts.Transitioned)
	suite.Equal(0, second.FailureCount())
}

func (suite *ReconciliationServiceTestSuite) TestStartStopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())

	// Start derives a logger-carrying context, so match loosely here.
	suite.mockExpenseSvc.On("FindExpensesByStatus", mock.Anything, domain.ExpenseReceiptPending).
		Return([]domain.ExpenseClaim{}, nil)
	suite.mockProjectSvc.On("FindExpiredActiveProjects", mock.Anything).Return([]domain.Project{}, nil)

	done := make(chan struct{})
	go func() {
		suite.service.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.Fail("scheduler did not stop after context cancellation")
	}
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
