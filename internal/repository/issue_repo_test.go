package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)
	require.NoError(t, database.NewMigrator(db, logger).RunSQL(context.Background(), string(schema)))
	return db
}

func seedUser(t *testing.T, db *database.DB, role models.Role) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         "test",
		Email:        uuid.NewString() + "@example.org",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(db.DB, zap.NewNop()).Create(context.Background(), nil, u))
	return u
}

func seedIssue(t *testing.T, db *database.DB, reporterID string) *models.Issue {
	t.Helper()
	now := time.Now().UTC()
	issue := &models.Issue{
		ID:            uuid.NewString(),
		ReporterID:    reporterID,
		Title:         "t",
		Description:   "d",
		Category:      models.CategoryRoads,
		Priority:      models.PriorityLow,
		Status:        models.IssueStatusPending,
		WorkflowStage: models.StageReported,
		Location:      models.Location{Area: "north-zone"},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, NewIssueRepository(db.DB, zap.NewNop()).Create(context.Background(), nil, issue))
	return issue
}

func TestIssueRepository_UpdateWorkflowCAS(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewIssueRepository(db.DB, zap.NewNop())

	reporter := seedUser(t, db, models.RoleCitizen)
	issue := seedIssue(t, db, reporter.ID)

	status := models.IssueStatusAcknowledged
	stage := models.StageDepartmentAssigned

	t.Run("stale version is a no-op conflict", func(t *testing.T) {
		err := repo.UpdateWorkflow(ctx, nil, issue.ID, issue.Version+1, IssueUpdate{Status: &status})
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, err := repo.GetByID(ctx, nil, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, models.IssueStatusPending, got.Status)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("matching version applies and bumps version", func(t *testing.T) {
		err := repo.UpdateWorkflow(ctx, nil, issue.ID, issue.Version, IssueUpdate{
			Status:        &status,
			WorkflowStage: &stage,
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, nil, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
		assert.Equal(t, stage, got.WorkflowStage)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("second writer at the old version loses", func(t *testing.T) {
		err := repo.UpdateWorkflow(ctx, nil, issue.ID, issue.Version, IssueUpdate{Status: &status})
		assert.ErrorIs(t, err, ErrVersionConflict)
	})
}

func TestIssueRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewIssueRepository(db.DB, zap.NewNop())

	_, err := repo.GetByID(context.Background(), nil, "no-such-issue")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTenderRepository_UniqueSourceIssue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tenders := NewTenderRepository(db.DB, zap.NewNop())

	reporter := seedUser(t, db, models.RoleCitizen)
	issue := seedIssue(t, db, reporter.ID)

	now := time.Now().UTC()
	mk := func() *models.Tender {
		return &models.Tender{
			ID:                 uuid.NewString(),
			SourceIssueID:      issue.ID,
			DepartmentID:       "dept-roads",
			Title:              "t",
			Description:        "d",
			Category:           issue.Category,
			Deadline:           now.Add(time.Hour),
			SubmissionDeadline: now.Add(time.Hour),
			Status:             models.TenderStatusAvailable,
			WorkflowStage:      models.TenderStageCreated,
			Version:            1,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}

	require.NoError(t, tenders.Create(ctx, nil, mk()))
	assert.ErrorIs(t, tenders.Create(ctx, nil, mk()), ErrDuplicate)
}

func TestBidRepository_OnePerContractor(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	logger := zap.NewNop()
	tenders := NewTenderRepository(db.DB, logger)
	bids := NewBidRepository(db.DB, logger)

	reporter := seedUser(t, db, models.RoleCitizen)
	contractor := seedUser(t, db, models.RoleContractor)
	issue := seedIssue(t, db, reporter.ID)

	now := time.Now().UTC()
	tender := &models.Tender{
		ID:                 uuid.NewString(),
		SourceIssueID:      issue.ID,
		DepartmentID:       "dept-roads",
		Title:              "t",
		Description:        "d",
		Category:           issue.Category,
		Deadline:           now.Add(time.Hour),
		SubmissionDeadline: now.Add(time.Hour),
		Status:             models.TenderStatusAvailable,
		WorkflowStage:      models.TenderStageCreated,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, tenders.Create(ctx, nil, tender))

	mk := func() *models.Bid {
		return &models.Bid{
			ID:           uuid.NewString(),
			TenderID:     tender.ID,
			ContractorID: contractor.ID,
			Amount:       100,
			Status:       models.BidStatusSubmitted,
			SubmittedAt:  now,
		}
	}

	require.NoError(t, bids.Create(ctx, nil, mk()))
	assert.ErrorIs(t, bids.Create(ctx, nil, mk()), ErrDuplicate)
}

func TestBidRepository_SetStatusIsFinal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	logger := zap.NewNop()
	tenders := NewTenderRepository(db.DB, logger)
	bids := NewBidRepository(db.DB, logger)

	reporter := seedUser(t, db, models.RoleCitizen)
	contractor := seedUser(t, db, models.RoleContractor)
	issue := seedIssue(t, db, reporter.ID)

	now := time.Now().UTC()
	tender := &models.Tender{
		ID:                 uuid.NewString(),
		SourceIssueID:      issue.ID,
		DepartmentID:       "dept-roads",
		Title:              "t",
		Description:        "d",
		Category:           issue.Category,
		Deadline:           now.Add(time.Hour),
		SubmissionDeadline: now.Add(time.Hour),
		Status:             models.TenderStatusAvailable,
		WorkflowStage:      models.TenderStageCreated,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, tenders.Create(ctx, nil, tender))

	bid := &models.Bid{
		ID:           uuid.NewString(),
		TenderID:     tender.ID,
		ContractorID: contractor.ID,
		Amount:       100,
		Status:       models.BidStatusSubmitted,
		SubmittedAt:  now,
	}
	require.NoError(t, bids.Create(ctx, nil, bid))

	require.NoError(t, bids.SetStatus(ctx, nil, bid.ID, models.BidStatusAccepted))

	// Accepted bids are immutable
	err := bids.SetStatus(ctx, nil, bid.ID, models.BidStatusRejected)
	assert.ErrorIs(t, err, ErrVersionConflict)
}
