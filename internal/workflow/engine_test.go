package workflow

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/gamification"
	"github.com/opencivic/civicflow/internal/identity"
	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/realtime"
	"github.com/opencivic/civicflow/internal/repository"
	"github.com/opencivic/civicflow/pkg/database"
)

// failingPublisher always errors, to prove publish stays best effort
type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	return errors.New("broker down")
}

// failingAwarder always errors, to prove point awards stay best effort
type failingAwarder struct{}

func (failingAwarder) Award(ctx context.Context, userID string, points int64) error {
	return errors.New("points service down")
}

type testEnv struct {
	engine *Engine
	db     *database.DB
	users  *repository.UserRepository

	citizen    identity.Actor
	areaAdmin  identity.Actor
	deptAdmin  identity.Actor
	contractor identity.Actor
	rival      identity.Actor
}

const (
	testArea = "north-zone"
	testDept = "dept-roads"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunSQL(context.Background(), string(schema)))

	users := repository.NewUserRepository(db.DB, logger)
	issues := repository.NewIssueRepository(db.DB, logger)
	assignments := repository.NewAssignmentRepository(db.DB, logger)
	tenders := repository.NewTenderRepository(db.DB, logger)
	bids := repository.NewBidRepository(db.DB, logger)
	progress := repository.NewWorkProgressRepository(db.DB, logger)

	engine := NewEngine(db, issues, assignments, tenders, bids, progress, users,
		gamification.NewService(users, logger), realtime.NopPublisher{}, logger)

	env := &testEnv{engine: engine, db: db, users: users}
	env.citizen = env.newUser(t, models.RoleCitizen, "", "")
	env.areaAdmin = env.newUser(t, models.RoleAreaSuperAdmin, testArea, "")
	env.deptAdmin = env.newUser(t, models.RoleDepartmentAdmin, "", testDept)
	env.contractor = env.newUser(t, models.RoleContractor, "", "")
	env.rival = env.newUser(t, models.RoleContractor, "", "")
	return env
}

func (env *testEnv) newUser(t *testing.T, role models.Role, areaName, deptID string) identity.Actor {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:                   uuid.NewString(),
		Name:                 string(role),
		Email:                uuid.NewString() + "@example.org",
		Role:                 role,
		AssignedAreaName:     areaName,
		AssignedDepartmentID: deptID,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, env.users.Create(context.Background(), nil, user))
	return identity.Actor{
		ID:                   user.ID,
		Role:                 role,
		AssignedAreaName:     areaName,
		AssignedDepartmentID: deptID,
	}
}

func (env *testEnv) reportIssue(t *testing.T, priority models.IssuePriority) *models.Issue {
	t.Helper()
	issue, err := env.engine.ReportIssue(context.Background(), env.citizen, ReportIssueInput{
		Title:       "Pothole on Main Street",
		Description: "Deep pothole near the bus stop",
		Category:    models.CategoryRoads,
		Priority:    priority,
		Location:    models.Location{Name: "Main Street", Area: testArea, Ward: "12"},
	})
	require.NoError(t, err)
	return issue
}

// issueToTender drives an issue through assignment and tender creation
func (env *testEnv) issueToTender(t *testing.T) (*models.Issue, *models.Tender) {
	t.Helper()
	ctx := context.Background()

	issue := env.reportIssue(t, models.PriorityHigh)

	issue, err := env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "roads issue")
	require.NoError(t, err)

	tender, err := env.engine.CreateTender(ctx, env.deptAdmin, issue.ID, CreateTenderInput{
		Title:              "Repair Main Street pothole",
		Description:        "Fill and resurface",
		BudgetMin:          1000,
		BudgetMax:          10000,
		Deadline:           time.Now().Add(30 * 24 * time.Hour),
		SubmissionDeadline: time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return issue, tender
}

// awardedTender drives a tender through bid and acceptance
func (env *testEnv) awardedTender(t *testing.T) (*models.Issue, *models.Tender, *models.Bid) {
	t.Helper()
	ctx := context.Background()

	issue, tender := env.issueToTender(t)
	bid, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 5000, Timeline: "2 weeks"})
	require.NoError(t, err)

	tender, err = env.engine.AcceptBid(ctx, env.deptAdmin, bid.ID)
	require.NoError(t, err)
	return issue, tender, bid
}

func TestReportIssue_AwardsPointsByPriority(t *testing.T) {
	tests := []struct {
		priority models.IssuePriority
		want     int64
	}{
		{models.PriorityUrgent, 20},
		{models.PriorityHigh, 15},
		{models.PriorityMedium, 10},
		{models.PriorityLow, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			env := newTestEnv(t)
			issue := env.reportIssue(t, tt.priority)

			assert.Equal(t, models.StageReported, issue.WorkflowStage)
			assert.Equal(t, models.IssueStatusPending, issue.Status)

			reporter, err := env.users.GetByID(context.Background(), nil, env.citizen.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reporter.Points)
		})
	}
}

func TestReportIssue_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ReportIssueInput
	}{
		{"missing title", ReportIssueInput{Description: "d", Category: models.CategoryRoads, Priority: models.PriorityLow, Location: models.Location{Area: testArea}}},
		{"bad category", ReportIssueInput{Title: "t", Description: "d", Category: "potholes", Priority: models.PriorityLow, Location: models.Location{Area: testArea}}},
		{"bad priority", ReportIssueInput{Title: "t", Description: "d", Category: models.CategoryRoads, Priority: "asap", Location: models.Location{Area: testArea}}},
		{"missing area", ReportIssueInput{Title: "t", Description: "d", Category: models.CategoryRoads, Priority: models.PriorityLow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.ReportIssue(ctx, env.citizen, tt.input)
			assert.Equal(t, CodeValidation, CodeOf(err))
		})
	}
}

func TestReportIssue_PointFailureDoesNotRollBack(t *testing.T) {
	env := newTestEnv(t)
	env.engine.points = failingAwarder{}
	env.engine.publisher = failingPublisher{}

	issue := env.reportIssue(t, models.PriorityUrgent)

	got, err := env.engine.GetIssue(context.Background(), env.citizen, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, got.ID)
}

func TestAssignToDepartment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issue := env.reportIssue(t, models.PriorityUrgent)

	updated, err := env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "handing off")
	require.NoError(t, err)
	assert.Equal(t, models.StageDepartmentAssigned, updated.WorkflowStage)
	assert.Equal(t, models.IssueStatusAcknowledged, updated.Status)
	assert.Equal(t, testDept, updated.AssignedDepartmentID)

	assignments, err := env.engine.ListAssignments(ctx, env.areaAdmin, issue.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, models.AssignmentAreaToDepartment, assignments[0].AssignmentType)
	assert.Equal(t, testDept, assignments[0].TargetID)
	assert.Equal(t, env.areaAdmin.ID, assignments[0].AssignedBy)
}

func TestAssignToDepartment_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue := env.reportIssue(t, models.PriorityLow)

	t.Run("wrong role", func(t *testing.T) {
		_, err := env.engine.AssignToDepartment(ctx, env.deptAdmin, issue.ID, testDept, "")
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	t.Run("wrong area", func(t *testing.T) {
		otherArea := env.newUser(t, models.RoleAreaSuperAdmin, "south-zone", "")
		_, err := env.engine.AssignToDepartment(ctx, otherArea, issue.ID, testDept, "")
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, "dept-ghost", "")
		assert.Equal(t, CodeValidation, CodeOf(err))
	})

	t.Run("already assigned", func(t *testing.T) {
		_, err := env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "")
		require.NoError(t, err)
		_, err = env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "")
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})
}

func TestCreateTender_RequiresDepartmentAssignedStage(t *testing.T) {
	env := newTestEnv(t)
	issue := env.reportIssue(t, models.PriorityHigh)

	_, err := env.engine.CreateTender(context.Background(), env.deptAdmin, issue.ID, CreateTenderInput{
		Title:              "too early",
		Deadline:           time.Now().Add(time.Hour),
		SubmissionDeadline: time.Now().Add(time.Hour),
	})
	// Unassigned issue: the scope check fires before the stage check
	assert.Equal(t, CodeUnauthorized, CodeOf(err))
}

func TestCreateTender_DuplicateFails(t *testing.T) {
	env := newTestEnv(t)
	issue, _ := env.issueToTender(t)

	_, err := env.engine.CreateTender(context.Background(), env.deptAdmin, issue.ID, CreateTenderInput{
		Title:              "second tender",
		Deadline:           time.Now().Add(time.Hour),
		SubmissionDeadline: time.Now().Add(time.Hour),
	})
	// The issue left department_assigned when the first tender was
	// created, so the stage check rejects before the duplicate check.
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestCreateTender_DuplicateConflictWhenStageForced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue, _ := env.issueToTender(t)

	// Force the issue back as a stale writer would see it
	_, err := env.db.ExecContext(ctx,
		"UPDATE issues SET workflow_stage = ? WHERE id = ?", models.StageDepartmentAssigned, issue.ID)
	require.NoError(t, err)

	_, err = env.engine.CreateTender(ctx, env.deptAdmin, issue.ID, CreateTenderInput{
		Title:              "second tender",
		Deadline:           time.Now().Add(time.Hour),
		SubmissionDeadline: time.Now().Add(time.Hour),
	})
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestMarkCompleteDirectly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issue := env.reportIssue(t, models.PriorityMedium)
	_, err := env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "")
	require.NoError(t, err)

	resolved, err := env.engine.MarkCompleteDirectly(ctx, env.deptAdmin, issue.ID, "fixed by city crew")
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusResolved, resolved.Status)
	assert.Equal(t, models.StageResolved, resolved.WorkflowStage)
	assert.Equal(t, "fixed by city crew", resolved.ResolutionNotes)
	require.NotNil(t, resolved.ResolvedAt)

	// Resolution is terminal
	_, err = env.engine.MarkCompleteDirectly(ctx, env.deptAdmin, issue.ID, "again")
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestSubmitBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, tender := env.issueToTender(t)

	bid, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 4200})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusSubmitted, bid.Status)

	t.Run("one bid per contractor per tender", func(t *testing.T) {
		_, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 4000})
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("non-contractor rejected", func(t *testing.T) {
		_, err := env.engine.SubmitBid(ctx, env.deptAdmin, tender.ID, SubmitBidInput{Amount: 1})
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := env.engine.SubmitBid(ctx, env.rival, tender.ID, SubmitBidInput{Amount: 0})
		assert.Equal(t, CodeValidation, CodeOf(err))
	})
}

func TestAcceptBid_RejectsSiblingsAtomically(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, tender := env.issueToTender(t)

	b1, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 5000})
	require.NoError(t, err)
	b2, err := env.engine.SubmitBid(ctx, env.rival, tender.ID, SubmitBidInput{Amount: 4500})
	require.NoError(t, err)

	awarded, err := env.engine.AcceptBid(ctx, env.deptAdmin, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenderStatusAwarded, awarded.Status)
	assert.Equal(t, models.TenderStageAwarded, awarded.WorkflowStage)
	assert.Equal(t, env.contractor.ID, awarded.AwardedContractorID)
	assert.Equal(t, 5000.0, awarded.AwardedAmount)

	bids, err := env.engine.ListBids(ctx, env.deptAdmin, tender.ID)
	require.NoError(t, err)
	accepted, rejected := 0, 0
	for _, b := range bids {
		switch b.Status {
		case models.BidStatusAccepted:
			accepted++
		case models.BidStatusRejected:
			rejected++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)

	t.Run("re-accepting the winner is rejected, not re-applied", func(t *testing.T) {
		_, err := env.engine.AcceptBid(ctx, env.deptAdmin, b1.ID)
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})

	t.Run("accepting the loser is rejected", func(t *testing.T) {
		_, err := env.engine.AcceptBid(ctx, env.deptAdmin, b2.ID)
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})
}

func TestAcceptBid_StaleVersionConflicts(t *testing.T) {
	// Models the two-admins race: the second accept commits against a
	// tender whose version moved underneath it and must conflict, not
	// award twice.
	env := newTestEnv(t)
	ctx := context.Background()
	logger := zap.NewNop()
	_, tender := env.issueToTender(t)

	_, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 5000})
	require.NoError(t, err)

	tenders := repository.NewTenderRepository(env.db.DB, logger)
	require.NoError(t, tenders.Award(ctx, nil, tender.ID, tender.Version, env.contractor.ID, 5000))

	err = tenders.Award(ctx, nil, tender.ID, tender.Version, env.rival.ID, 4500)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	final, err := tenders.GetByID(ctx, nil, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, env.contractor.ID, final.AwardedContractorID)
}

func TestStartWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, tender, _ := env.awardedTender(t)

	t.Run("only the awarded contractor", func(t *testing.T) {
		_, err := env.engine.StartWork(ctx, env.rival, tender.ID)
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	started, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenderStageWorkInProgress, started.WorkflowStage)
	require.NotNil(t, started.WorkStartedAt)

	t.Run("cannot start twice", func(t *testing.T) {
		_, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})
}

func TestSubmitProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, tender, _ := env.awardedTender(t)

	t.Run("requires work in progress", func(t *testing.T) {
		_, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
			ProgressType: models.ProgressTypeUpdate, Title: "early", ProgressPercentage: 10,
		})
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})

	_, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)

	t.Run("update keeps the stage", func(t *testing.T) {
		report, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
			ProgressType: models.ProgressTypeUpdate, Title: "halfway", ProgressPercentage: 50,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ProgressStatusSubmitted, report.Status)

		current, err := env.engine.ListContractorTenders(ctx, env.contractor)
		require.NoError(t, err)
		require.Len(t, current, 1)
		assert.Equal(t, models.TenderStageWorkInProgress, current[0].WorkflowStage)
	})

	t.Run("completion moves to work_completed", func(t *testing.T) {
		_, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
			ProgressType: models.ProgressTypeCompletion, Title: "done", ProgressPercentage: 100,
		})
		require.NoError(t, err)

		current, err := env.engine.ListContractorTenders(ctx, env.contractor)
		require.NoError(t, err)
		require.Len(t, current, 1)
		assert.Equal(t, models.TenderStageWorkCompleted, current[0].WorkflowStage)
	})
}

func TestVerifyWork_ApproveCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue, tender, _ := env.awardedTender(t)

	_, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	report, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
		ProgressType: models.ProgressTypeCompletion, Title: "done", ProgressPercentage: 100,
	})
	require.NoError(t, err)

	verified, err := env.engine.VerifyWork(ctx, env.deptAdmin, report.ID, true, "good work")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusApproved, verified.Status)
	assert.Equal(t, env.deptAdmin.ID, verified.VerifiedBy)
	require.NotNil(t, verified.VerifiedAt)

	finalTenders, err := env.engine.ListContractorTenders(ctx, env.contractor)
	require.NoError(t, err)
	require.Len(t, finalTenders, 1)
	assert.Equal(t, models.TenderStatusCompleted, finalTenders[0].Status)
	assert.Equal(t, models.TenderStageVerified, finalTenders[0].WorkflowStage)

	finalIssue, err := env.engine.GetIssue(ctx, env.citizen, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusResolved, finalIssue.Status)
	assert.Equal(t, models.StageResolved, finalIssue.WorkflowStage)
	require.NotNil(t, finalIssue.ResolvedAt)
}

func TestVerifyWork_RejectReturnsToWorkInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue, tender, _ := env.awardedTender(t)

	_, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	report, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
		ProgressType: models.ProgressTypeCompletion, Title: "done?", ProgressPercentage: 100,
	})
	require.NoError(t, err)

	rejected, err := env.engine.VerifyWork(ctx, env.deptAdmin, report.ID, false, "surface still uneven")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusRejected, rejected.Status)
	assert.Equal(t, "surface still uneven", rejected.VerificationNotes)

	current, err := env.engine.ListContractorTenders(ctx, env.contractor)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, models.TenderStageWorkInProgress, current[0].WorkflowStage)
	assert.Equal(t, models.TenderStatusAwarded, current[0].Status)

	// Issue untouched by rejection
	got, err := env.engine.GetIssue(ctx, env.citizen, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, got.Status)

	// Contractor may resubmit
	_, err = env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
		ProgressType: models.ProgressTypeCompletion, Title: "done, really", ProgressPercentage: 100,
	})
	require.NoError(t, err)
}

func TestVerifyWork_ApproveIsAllOrNothing(t *testing.T) {
	// Fault injection: the cascading issue update is made impossible,
	// so the whole verification must roll back, leaving the report
	// submitted and the tender in work_completed.
	env := newTestEnv(t)
	ctx := context.Background()
	issue, tender, _ := env.awardedTender(t)

	_, err := env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	report, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
		ProgressType: models.ProgressTypeCompletion, Title: "done", ProgressPercentage: 100,
	})
	require.NoError(t, err)

	_, err = env.db.ExecContext(ctx,
		"UPDATE issues SET workflow_stage = ?, status = ? WHERE id = ?",
		models.StageResolved, models.IssueStatusResolved, issue.ID)
	require.NoError(t, err)

	_, err = env.engine.VerifyWork(ctx, env.deptAdmin, report.ID, true, "")
	require.Error(t, err)

	reports, err := env.engine.ListProgress(ctx, env.deptAdmin, tender.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, models.ProgressStatusSubmitted, reports[0].Status)

	tenders, err := env.engine.ListContractorTenders(ctx, env.contractor)
	require.NoError(t, err)
	require.Len(t, tenders, 1)
	assert.Equal(t, models.TenderStageWorkCompleted, tenders[0].WorkflowStage)
	assert.Equal(t, models.TenderStatusAwarded, tenders[0].Status)
}

func TestUpdateIssueStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue := env.reportIssue(t, models.PriorityLow)

	t.Run("citizen may not set status", func(t *testing.T) {
		_, err := env.engine.UpdateIssueStatus(ctx, env.citizen, issue.ID, models.IssueStatusAcknowledged)
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	updated, err := env.engine.UpdateIssueStatus(ctx, env.areaAdmin, issue.ID, models.IssueStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, updated.Status)
	assert.Equal(t, models.StageReported, updated.WorkflowStage)

	resolved, err := env.engine.UpdateIssueStatus(ctx, env.areaAdmin, issue.ID, models.IssueStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, models.StageResolved, resolved.WorkflowStage)
	require.NotNil(t, resolved.ResolvedAt)

	t.Run("terminal issues reject further changes", func(t *testing.T) {
		_, err := env.engine.UpdateIssueStatus(ctx, env.areaAdmin, issue.ID, models.IssueStatusPending)
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})
}

func TestFullWorkflowScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Citizen files an urgent roads issue: 20 points
	issue, err := env.engine.ReportIssue(ctx, env.citizen, ReportIssueInput{
		Title:       "Collapsed culvert",
		Description: "Road shoulder washed out",
		Category:    models.CategoryRoads,
		Priority:    models.PriorityUrgent,
		Location:    models.Location{Name: "Ring Road", Area: testArea},
	})
	require.NoError(t, err)
	reporter, err := env.users.GetByID(ctx, nil, env.citizen.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), reporter.Points)

	// Area admin assigns to the roads department
	issue, err = env.engine.AssignToDepartment(ctx, env.areaAdmin, issue.ID, testDept, "")
	require.NoError(t, err)
	require.Equal(t, models.StageDepartmentAssigned, issue.WorkflowStage)
	assignments, err := env.engine.ListAssignments(ctx, env.areaAdmin, issue.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)

	// Department admin opens a tender
	tender, err := env.engine.CreateTender(ctx, env.deptAdmin, issue.ID, CreateTenderInput{
		Title:              "Culvert reconstruction",
		Deadline:           time.Now().Add(60 * 24 * time.Hour),
		SubmissionDeadline: time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, models.TenderStatusAvailable, tender.Status)
	issue, err = env.engine.GetIssue(ctx, env.citizen, issue.ID)
	require.NoError(t, err)
	require.Equal(t, models.StageContractorAssigned, issue.WorkflowStage)

	// Contractor bids, department accepts
	bid, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, models.BidStatusSubmitted, bid.Status)

	tender, err = env.engine.AcceptBid(ctx, env.deptAdmin, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderStatusAwarded, tender.Status)
	require.Equal(t, 5000.0, tender.AwardedAmount)

	// Contractor works and completes
	tender, err = env.engine.StartWork(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderStageWorkInProgress, tender.WorkflowStage)

	report, err := env.engine.SubmitProgress(ctx, env.contractor, tender.ID, SubmitProgressInput{
		ProgressType: models.ProgressTypeCompletion, Title: "Culvert rebuilt", ProgressPercentage: 100,
	})
	require.NoError(t, err)

	// Department verifies and everything closes
	_, err = env.engine.VerifyWork(ctx, env.deptAdmin, report.ID, true, "inspected on site")
	require.NoError(t, err)

	issue, err = env.engine.GetIssue(ctx, env.citizen, issue.ID)
	require.NoError(t, err)
	require.Equal(t, models.IssueStatusResolved, issue.Status)

	final, err := env.engine.ListContractorTenders(ctx, env.contractor)
	require.NoError(t, err)
	require.Len(t, final, 1)
	require.Equal(t, models.TenderStatusCompleted, final[0].Status)
	require.Equal(t, models.TenderStageVerified, final[0].WorkflowStage)
}

func TestListScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One issue in the admin's area, one outside
	env.reportIssue(t, models.PriorityLow)
	_, err := env.engine.ReportIssue(ctx, env.citizen, ReportIssueInput{
		Title: "Broken light", Description: "d", Category: models.CategorySafety,
		Priority: models.PriorityLow, Location: models.Location{Name: "x", Area: "south-zone"},
	})
	require.NoError(t, err)

	areaIssues, err := env.engine.ListIssues(ctx, env.areaAdmin, IssueListOptions{})
	require.NoError(t, err)
	require.Len(t, areaIssues, 1)
	assert.Equal(t, testArea, areaIssues[0].Location.Area)

	citizenIssues, err := env.engine.ListIssues(ctx, env.citizen, IssueListOptions{})
	require.NoError(t, err)
	assert.Len(t, citizenIssues, 2)

	t.Run("contractors may not list issues", func(t *testing.T) {
		_, err := env.engine.ListIssues(ctx, env.contractor, IssueListOptions{})
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	t.Run("department scoping on tenders", func(t *testing.T) {
		_, tender := env.issueToTender(t)

		otherDept := env.newUser(t, models.RoleDepartmentAdmin, "", "dept-parks")
		theirs, err := env.engine.ListTenders(ctx, otherDept, TenderListOptions{})
		require.NoError(t, err)
		assert.Empty(t, theirs)

		ours, err := env.engine.ListTenders(ctx, env.deptAdmin, TenderListOptions{})
		require.NoError(t, err)
		require.Len(t, ours, 1)
		assert.Equal(t, tender.ID, ours[0].ID)
	})

	t.Run("contractor tenders require a bid", func(t *testing.T) {
		mine, err := env.engine.ListContractorTenders(ctx, env.rival)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}

func TestContractorSeesOnlyOwnBids(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, tender := env.issueToTender(t)

	_, err := env.engine.SubmitBid(ctx, env.contractor, tender.ID, SubmitBidInput{Amount: 5000})
	require.NoError(t, err)
	_, err = env.engine.SubmitBid(ctx, env.rival, tender.ID, SubmitBidInput{Amount: 4500})
	require.NoError(t, err)

	own, err := env.engine.ListBids(ctx, env.contractor, tender.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, env.contractor.ID, own[0].ContractorID)

	all, err := env.engine.ListBids(ctx, env.deptAdmin, tender.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
