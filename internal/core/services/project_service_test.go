package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/research_fund_app/internal/apperrors"
	"github.com/SscSPs/research_fund_app/internal/core/domain"
	portssvc "github.com/SscSPs/research_fund_app/internal/core/ports/services"
	"github.com/SscSPs/research_fund_app/internal/core/services"
	"github.com/SscSPs/research_fund_app/internal/dto"
)

type ProjectServiceTestSuite struct {
	suite.Suite
	mockRepo *MockProjectRepository
	clock    fixedClock
	service  portssvc.ProjectSvcFacade

	leader  portssvc.Actor
	auditor portssvc.Actor
}

func (suite *ProjectServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockProjectRepository)
	suite.clock = fixedClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	suite.service = services.NewProjectService(suite.mockRepo, suite.clock)

	suite.leader = portssvc.Actor{UserID: "user-1", UserName: "Li Wei"}
	suite.auditor = portssvc.Actor{UserID: "admin-1", UserName: "Chen Jing"}
}

func (suite *ProjectServiceTestSuite) createRequest() dto.CreateProjectRequest {
	return dto.CreateProjectRequest{
		Name:      "Sensor Networks",
		Budget:    decimal.NewFromInt(10000),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		BudgetItems: []dto.BudgetItemRequest{
			{Category: "差旅费", Amount: decimal.NewFromInt(3000)},
			{Category: "设备费", Amount: decimal.NewFromInt(7000)},
		},
	}
}

func (suite *ProjectServiceTestSuite) project(status domain.ProjectStatus, audit domain.ProjectAuditStatus) *domain.Project {
	return &domain.Project{
		ProjectID:   "proj-1",
		Name:        "Sensor Networks",
		LeaderID:    suite.leader.UserID,
		Budget:      decimal.NewFromInt(10000),
		UsedBudget:  decimal.Zero,
		Status:      status,
		AuditStatus: audit,
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		BudgetItems: []domain.BudgetItem{
			{Category: "差旅费", Amount: decimal.NewFromInt(3000)},
		},
	}
}

func (suite *ProjectServiceTestSuite) TestCreateProject_Success() {
	ctx := context.Background()
	suite.mockRepo.On("SaveProject", ctx, mock.AnythingOfType("domain.Project")).Return(nil).Once()

	project, err := suite.service.CreateProject(ctx, suite.createRequest(), suite.leader)

	suite.Require().NoError(err)
	suite.NotEmpty(project.ProjectID)
	suite.Equal(domain.ProjectPlanning, project.Status)
	suite.Equal(domain.AuditNotSubmitted, project.AuditStatus)
	suite.Equal(suite.leader.UserID, project.LeaderID, "creator becomes leader")
	suite.True(project.UsedBudget.IsZero())
	suite.Len(project.BudgetItems, 2)
	suite.Equal(project.ProjectID, project.BudgetItems[0].ProjectID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ProjectServiceTestSuite) TestCreateProject_EndBeforeStart() {
	req := suite.createRequest()
	req.EndDate = req.StartDate.Add(-24 * time.Hour)

	_, err := suite.service.CreateProject(context.Background(), req, suite.leader)

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveProject", mock.Anything, mock.Anything)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_ItemsExceedBudget() {
	req := suite.createRequest()
	req.BudgetItems = append(req.BudgetItems, dto.BudgetItemRequest{Category: "劳务费", Amount: decimal.NewFromInt(1)})

	_, err := suite.service.CreateProject(context.Background(), req, suite.leader)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_DuplicateCategory() {
	req := suite.createRequest()
	req.BudgetItems = []dto.BudgetItemRequest{
		{Category: "差旅费", Amount: decimal.NewFromInt(1000)},
		{Category: "差旅费", Amount: decimal.NewFromInt(2000)},
	}

	_, err := suite.service.CreateProject(context.Background(), req, suite.leader)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_NoItems() {
	req := suite.createRequest()
	req.BudgetItems = nil

	_, err := suite.service.CreateProject(context.Background(), req, suite.leader)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ProjectServiceTestSuite) TestUpdateProject_ShrunkBudgetMustStillCoverItems() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditNotSubmitted)
	existing.BudgetItems = []domain.BudgetItem{
		{Category: "差旅费", Amount: decimal.NewFromInt(3000)},
		{Category: "设备费", Amount: decimal.NewFromInt(7000)},
	}
	smaller := decimal.NewFromInt(5000)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	_, err := suite.service.UpdateProject(ctx, "proj-1", dto.UpdateProjectRequest{Budget: &smaller}, suite.leader)

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateProject", mock.Anything, mock.Anything)
}

func (suite *ProjectServiceTestSuite) TestUpdateProject_NotPlanning() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectActive, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	_, err := suite.service.UpdateProject(ctx, "proj-1", dto.UpdateProjectRequest{}, suite.leader)

	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)
}

func (suite *ProjectServiceTestSuite) TestUpdateProject_NotLeader() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditNotSubmitted)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	_, err := suite.service.UpdateProject(ctx, "proj-1", dto.UpdateProjectRequest{}, suite.auditor)

	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ProjectServiceTestSuite) TestConfirmProject_Success() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditNotSubmitted)
	confirmed := suite.project(domain.ProjectPlanning, domain.AuditPending)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectAudit", ctx, "proj-1", domain.AuditNotSubmitted, domain.AuditPending,
		(*domain.ProjectStatus)(nil), "", suite.leader.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(confirmed, nil).Once()

	project, err := suite.service.ConfirmProject(ctx, "proj-1", suite.leader)

	suite.Require().NoError(err)
	suite.Equal(domain.AuditPending, project.AuditStatus)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ProjectServiceTestSuite) TestConfirmProject_SecondConfirmRefused() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditPending)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	_, err := suite.service.ConfirmProject(ctx, "proj-1", suite.leader)

	suite.ErrorIs(err, services.ErrAlreadySubmitted)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateProjectAudit",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ProjectServiceTestSuite) TestConfirmProject_GuardMissBecomesAlreadySubmitted() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditNotSubmitted)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectAudit", ctx, "proj-1", domain.AuditNotSubmitted, domain.AuditPending,
		(*domain.ProjectStatus)(nil), "", suite.leader.UserID, suite.clock.Now()).
		Return(apperrors.ErrInvalidStateTransition).Once()

	_, err := suite.service.ConfirmProject(ctx, "proj-1", suite.leader)

	suite.ErrorIs(err, services.ErrAlreadySubmitted)
}

func (suite *ProjectServiceTestSuite) TestAuditProject_Approve() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditPending)
	activated := suite.project(domain.ProjectActive, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectAudit", ctx, "proj-1", domain.AuditPending, domain.AuditApproved,
		mock.MatchedBy(func(s *domain.ProjectStatus) bool {
			return s != nil && *s == domain.ProjectActive
		}), "ok", suite.auditor.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(activated, nil).Once()

	project, err := suite.service.AuditProject(ctx, "proj-1", domain.DecisionApproved, "ok", suite.auditor)

	suite.Require().NoError(err)
	suite.Equal(domain.ProjectActive, project.Status)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ProjectServiceTestSuite) TestAuditProject_Reject() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditPending)
	suspended := suite.project(domain.ProjectSuspended, domain.AuditRejected)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectAudit", ctx, "proj-1", domain.AuditPending, domain.AuditRejected,
		mock.MatchedBy(func(s *domain.ProjectStatus) bool {
			return s != nil && *s == domain.ProjectSuspended
		}), "insufficient detail", suite.auditor.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(suspended, nil).Once()

	project, err := suite.service.AuditProject(ctx, "proj-1", domain.DecisionRejected, "insufficient detail", suite.auditor)

	suite.Require().NoError(err)
	suite.Equal(domain.ProjectSuspended, project.Status)
}

func (suite *ProjectServiceTestSuite) TestAuditProject_NotAwaitingAudit() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPlanning, domain.AuditNotSubmitted)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	_, err := suite.service.AuditProject(ctx, "proj-1", domain.DecisionApproved, "", suite.auditor)

	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)
}

func (suite *ProjectServiceTestSuite) TestSubmitCompletionReport_Success() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPendingCompletion, domain.AuditApproved)
	submitted := suite.project(domain.ProjectCompletionReview, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectStatus", ctx, "proj-1", domain.ProjectPendingCompletion, domain.ProjectCompletionReview,
		mock.MatchedBy(func(p *string) bool {
			return p != nil && *p == "/reports/final.pdf"
		}), (*string)(nil), suite.leader.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(submitted, nil).Once()

	project, err := suite.service.SubmitCompletionReport(ctx, "proj-1", "/reports/final.pdf", suite.leader)

	suite.Require().NoError(err)
	suite.Equal(domain.ProjectCompletionReview, project.Status)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ProjectServiceTestSuite) TestSubmitCompletionReport_RequiresPath() {
	_, err := suite.service.SubmitCompletionReport(context.Background(), "proj-1", "", suite.leader)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ProjectServiceTestSuite) TestAuditCompletion_ApproveArchives() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectCompletionReview, domain.AuditApproved)
	archived := suite.project(domain.ProjectArchived, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectStatus", ctx, "proj-1", domain.ProjectCompletionReview, domain.ProjectArchived,
		(*string)(nil), mock.MatchedBy(func(c *string) bool { return c != nil }),
		suite.auditor.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(archived, nil).Once()

	project, err := suite.service.AuditCompletion(ctx, "proj-1", domain.DecisionApproved, "all receipts in order", suite.auditor)

	suite.Require().NoError(err)
	suite.Equal(domain.ProjectArchived, project.Status)
}

func (suite *ProjectServiceTestSuite) TestAuditCompletion_RejectResubmits() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectCompletionReview, domain.AuditApproved)
	returned := suite.project(domain.ProjectPendingCompletion, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectStatus", ctx, "proj-1", domain.ProjectCompletionReview, domain.ProjectPendingCompletion,
		(*string)(nil), mock.MatchedBy(func(c *string) bool { return c != nil }),
		suite.auditor.UserID, suite.clock.Now()).Return(nil).Once()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(returned, nil).Once()

	project, err := suite.service.AuditCompletion(ctx, "proj-1", domain.DecisionRejected, "missing summary", suite.auditor)

	suite.Require().NoError(err)
	suite.Equal(domain.ProjectPendingCompletion, project.Status)
}

func (suite *ProjectServiceTestSuite) TestExpireProject_Success() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectActive, domain.AuditApproved)
	existing.EndDate = suite.clock.Now().Add(-24 * time.Hour)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectStatus", ctx, "proj-1", domain.ProjectActive, domain.ProjectPendingCompletion,
		(*string)(nil), (*string)(nil), "system", suite.clock.Now()).Return(nil).Once()

	transitioned, err := suite.service.ExpireProject(ctx, "proj-1")

	suite.Require().NoError(err)
	suite.True(transitioned)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ProjectServiceTestSuite) TestExpireProject_SkipsWhenNotActive() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectPendingCompletion, domain.AuditApproved)
	existing.EndDate = suite.clock.Now().Add(-24 * time.Hour)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	transitioned, err := suite.service.ExpireProject(ctx, "proj-1")

	suite.Require().NoError(err)
	suite.False(transitioned)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateProjectStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ProjectServiceTestSuite) TestExpireProject_SkipsWhenNotPastEndDate() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectActive, domain.AuditApproved)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()

	transitioned, err := suite.service.ExpireProject(ctx, "proj-1")

	suite.Require().NoError(err)
	suite.False(transitioned)
}

func (suite *ProjectServiceTestSuite) TestExpireProject_SkipsWhenGuardMisses() {
	ctx := context.Background()
	existing := suite.project(domain.ProjectActive, domain.AuditApproved)
	existing.EndDate = suite.clock.Now().Add(-24 * time.Hour)

	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateProjectStatus", ctx, "proj-1", domain.ProjectActive, domain.ProjectPendingCompletion,
		(*string)(nil), (*string)(nil), "system", suite.clock.Now()).
		Return(apperrors.ErrInvalidStateTransition).Once()

	transitioned, err := suite.service.ExpireProject(ctx, "proj-1")

	suite.Require().NoError(err)
	suite.False(transitioned)
}

func (suite *ProjectServiceTestSuite) TestExpireProject_SkipsMissingProject() {
	ctx := context.Background()
	suite.mockRepo.On("FindProjectByID", ctx, "proj-1").Return(nil, apperrors.ErrNotFound).Once()

	transitioned, err := suite.service.ExpireProject(ctx, "proj-1")

	suite.Require().NoError(err)
	suite.False(transitioned)
}

func TestProjectService(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
