package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portsrepo "github.com/SscSPs/research_fund_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
)

// fixedClock pins Now() so deadline checks are deterministic.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// MockExpenseRepository is a mock type for the ExpenseRepositoryFacade interface
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) SaveExpense(ctx context.Context, claim domain.ExpenseClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseRepository) UpdateExpense(ctx context.Context, claim domain.ExpenseClaim, replaceAttachments bool) error {
	args := m.Called(ctx, claim, replaceAttachments)
	return args.Error(0)
}

func (m *MockExpenseRepository) UpdateExpenseStatus(ctx context.Context, expenseID string, expected, next domain.ExpenseStatus, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
	args := m.Called(ctx, expenseID, expected, next, audit, comment, updatedAt)
	return args.Error(0)
}

func (m *MockExpenseRepository) PayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, next domain.ExpenseStatus, comment string, updatedAt time.Time) error {
	args := m.Called(ctx, claim, next, comment, updatedAt)
	return args.Error(0)
}

func (m *MockExpenseRepository) RepayExpenseWithBudget(ctx context.Context, claim domain.ExpenseClaim, comment string, updatedAt time.Time) error {
	args := m.Called(ctx, claim, comment, updatedAt)
	return args.Error(0)
}

func (m *MockExpenseRepository) SumCommittedAmountByType(ctx context.Context, projectID, expenseType string, excludeExpenseID *string) (decimal.Decimal, error) {
	args := m.Called(ctx, projectID, expenseType, excludeExpenseID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExpenseRepository) AddAttachments(ctx context.Context, expenseID string, attachments []domain.Attachment) error {
	args := m.Called(ctx, expenseID, attachments)
	return args.Error(0)
}

func (m *MockExpenseRepository) FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseRepository) ListExpensesByUser(ctx context.Context, userID string) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseRepository) ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseRepository) ListExpenses(ctx context.Context) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseRepository) SoftDeleteExpense(ctx context.Context, expenseID, deletedBy string, deletedAt time.Time) error {
	args := m.Called(ctx, expenseID, deletedBy, deletedAt)
	return args.Error(0)
}

// MockProjectRepository is a mock type for the ProjectRepositoryFacade interface
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) SaveProject(ctx context.Context, project domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) FindProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) UpdateProject(ctx context.Context, project domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) UpdateProjectStatus(ctx context.Context, projectID string, expected, next domain.ProjectStatus, reportPath, comment *string, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, projectID, expected, next, reportPath, comment, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockProjectRepository) UpdateProjectAudit(ctx context.Context, projectID string, expected, next domain.ProjectAuditStatus, newStatus *domain.ProjectStatus, comment string, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, projectID, expected, next, newStatus, comment, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockProjectRepository) FindProjectsByStatus(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) FindExpiredActiveProjects(ctx context.Context, asOf time.Time) ([]domain.Project, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error) {
	args := m.Called(ctx, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) SoftDeleteProject(ctx context.Context, projectID, deletedBy string, deletedAt time.Time) error {
	args := m.Called(ctx, projectID, deletedBy, deletedAt)
	return args.Error(0)
}

// MockTransferRepository is a mock type for the TransferRepositoryFacade interface
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) SaveTransfer(ctx context.Context, transfer domain.FundTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) FindTransferByID(ctx context.Context, transferID string) (*domain.FundTransfer, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundTransfer), args.Error(1)
}

func (m *MockTransferRepository) UpdateTransfer(ctx context.Context, transfer domain.FundTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) UpdateTransferStatus(ctx context.Context, transferID string, expected, next domain.TransferStatus, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
	args := m.Called(ctx, transferID, expected, next, audit, comment, updatedAt)
	return args.Error(0)
}

func (m *MockTransferRepository) ApproveTransferWithBudget(ctx context.Context, transfer domain.FundTransfer, audit *portsrepo.AuditStamp, comment string, updatedAt time.Time) error {
	args := m.Called(ctx, transfer, audit, comment, updatedAt)
	return args.Error(0)
}

func (m *MockTransferRepository) ListTransfers(ctx context.Context) ([]domain.FundTransfer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FundTransfer), args.Error(1)
}

func (m *MockTransferRepository) ListTransfersByUser(ctx context.Context, userID string) ([]domain.FundTransfer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FundTransfer), args.Error(1)
}

func (m *MockTransferRepository) SoftDeleteTransfer(ctx context.Context, transferID, deletedBy string, deletedAt time.Time) error {
	args := m.Called(ctx, transferID, deletedBy, deletedAt)
	return args.Error(0)
}

// MockFundArrivalRepository is a mock type for the FundArrivalRepositoryFacade interface
type MockFundArrivalRepository struct {
	mock.Mock
}

func (m *MockFundArrivalRepository) SaveFundArrival(ctx context.Context, arrival domain.FundArrival) error {
	args := m.Called(ctx, arrival)
	return args.Error(0)
}

func (m *MockFundArrivalRepository) FindFundArrivalByID(ctx context.Context, arrivalID string) (*domain.FundArrival, error) {
	args := m.Called(ctx, arrivalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundArrival), args.Error(1)
}

func (m *MockFundArrivalRepository) ListFundArrivalsByProject(ctx context.Context, projectID string) ([]domain.FundArrival, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FundArrival), args.Error(1)
}

func (m *MockFundArrivalRepository) SumFundArrivalsByProject(ctx context.Context, projectID string, excludeArrivalID *string) (decimal.Decimal, error) {
	args := m.Called(ctx, projectID, excludeArrivalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFundArrivalRepository) UpdateFundArrivalStatus(ctx context.Context, arrivalID string, expected, next domain.ArrivalStatus, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, arrivalID, expected, next, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockFundArrivalRepository) SoftDeleteFundArrival(ctx context.Context, arrivalID, deletedBy string, deletedAt time.Time) error {
	args := m.Called(ctx, arrivalID, deletedBy, deletedAt)
	return args.Error(0)
}

// MockProjectService is a mock type for the ProjectSvcFacade interface
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(ctx context.Context, req dto.CreateProjectRequest, creator portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, req, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) UpdateProject(ctx context.Context, projectID string, req dto.UpdateProjectRequest, actor portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, projectID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, projectID string, actor portssvc.Actor) error {
	args := m.Called(ctx, projectID, actor)
	return args.Error(0)
}

func (m *MockProjectService) ConfirmProject(ctx context.Context, projectID string, actor portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, projectID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) AuditProject(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, projectID, decision, comment, auditor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) SubmitCompletionReport(ctx context.Context, projectID, reportPath string, actor portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, projectID, reportPath, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) AuditCompletion(ctx context.Context, projectID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.Project, error) {
	args := m.Called(ctx, projectID, decision, comment, auditor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) ExpireProject(ctx context.Context, projectID string) (bool, error) {
	args := m.Called(ctx, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectService) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectService) ListProjectsByLeader(ctx context.Context, leaderID string) ([]domain.Project, error) {
	args := m.Called(ctx, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectService) FindExpiredActiveProjects(ctx context.Context) ([]domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

// MockExpenseService is a mock type for the ExpenseSvcFacade interface
type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creator portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, req, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) DeleteExpense(ctx context.Context, expenseID string, actor portssvc.Actor) error {
	args := m.Called(ctx, expenseID, actor)
	return args.Error(0)
}

func (m *MockExpenseService) AuditExpense(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, decision, comment, auditor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) PayExpense(ctx context.Context, expenseID string, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) SubmitReceipt(ctx context.Context, expenseID string, attachments []dto.AttachmentRequest, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, attachments, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) AuditReceipt(ctx context.Context, expenseID string, decision domain.AuditDecision, comment string, auditor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, decision, comment, auditor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) RepayExpense(ctx context.Context, expenseID string, actor portssvc.Actor) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) MarkReceiptOverdue(ctx context.Context, expenseID string) (bool, error) {
	args := m.Called(ctx, expenseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockExpenseService) GetExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseClaim, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) ListExpenses(ctx context.Context, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) ListExpensesByUser(ctx context.Context, userID string, params dto.ListExpensesParams) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}

func (m *MockExpenseService) FindExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.ExpenseClaim, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseClaim), args.Error(1)
}
