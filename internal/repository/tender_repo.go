package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// TenderRepository handles tender persistence
type TenderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTenderRepository creates a new tender repository
func NewTenderRepository(db *sql.DB, logger *zap.Logger) *TenderRepository {
	return &TenderRepository{db: db, logger: logger}
}

const tenderColumns = `
	id, source_issue_id, department_id, title, description, category,
	location_name, location_address, location_area, location_ward, latitude, longitude,
	budget_min, budget_max, deadline, submission_deadline, status, workflow_stage,
	awarded_contractor_id, awarded_amount, work_started_at, version, created_at, updated_at
`

// Create inserts a new tender. A second tender for the same source
// issue violates the unique index and returns ErrDuplicate.
func (r *TenderRepository) Create(ctx context.Context, tx *sql.Tx, t *models.Tender) error {
	query := `
		INSERT INTO tenders (
			id, source_issue_id, department_id, title, description, category,
			location_name, location_address, location_area, location_ward, latitude, longitude,
			budget_min, budget_max, deadline, submission_deadline, status, workflow_stage,
			awarded_contractor_id, awarded_amount, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var sourceIssue any
	if t.SourceIssueID != "" {
		sourceIssue = t.SourceIssueID
	}

	_, err := pick(tx, r.db).ExecContext(ctx, query,
		t.ID,
		sourceIssue,
		t.DepartmentID,
		t.Title,
		t.Description,
		t.Category,
		t.Location.Name,
		t.Location.Address,
		t.Location.Area,
		t.Location.Ward,
		t.Location.Latitude,
		t.Location.Longitude,
		t.BudgetMin,
		t.BudgetMax,
		t.Deadline,
		t.SubmissionDeadline,
		t.Status,
		t.WorkflowStage,
		t.AwardedContractorID,
		t.AwardedAmount,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create tender", zap.Error(err))
		return fmt.Errorf("failed to create tender: %w", err)
	}
	return nil
}

// GetByID retrieves a tender by id
func (r *TenderRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE id = ?`
	return scanTenderFrom(pick(tx, r.db).QueryRowContext(ctx, query, id))
}

// GetBySourceIssue retrieves the tender derived from the given issue,
// or ErrNotFound when the issue never spawned one.
func (r *TenderRepository) GetBySourceIssue(ctx context.Context, tx *sql.Tx, issueID string) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE source_issue_id = ?`
	return scanTenderFrom(pick(tx, r.db).QueryRowContext(ctx, query, issueID))
}

// Award marks the tender awarded to the given contractor. The update is
// conditioned on the tender still being available at its read version;
// a losing racer gets ErrVersionConflict and must not award twice.
func (r *TenderRepository) Award(ctx context.Context, tx *sql.Tx, tenderID string, version int64, contractorID string, amount float64) error {
	query := `
		UPDATE tenders
		SET status = ?, workflow_stage = ?, awarded_contractor_id = ?, awarded_amount = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`
	result, err := pick(tx, r.db).ExecContext(ctx, query,
		models.TenderStatusAwarded,
		models.TenderStageAwarded,
		contractorID,
		amount,
		time.Now().UTC(),
		tenderID,
		version,
		models.TenderStatusAvailable,
	)
	if err != nil {
		r.logger.Error("Failed to award tender", zap.String("tender_id", tenderID), zap.Error(err))
		return fmt.Errorf("failed to award tender: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// TenderUpdate carries the workflow-owned tender fields one transition
// writes. Nil pointer fields are left unchanged.
type TenderUpdate struct {
	Status        *models.TenderStatus
	WorkflowStage *models.TenderStage
	WorkStartedAt *time.Time
}

// UpdateWorkflow applies a transition's field updates with a
// compare-and-set on the tender's version.
func (r *TenderRepository) UpdateWorkflow(ctx context.Context, tx *sql.Tx, id string, version int64, upd TenderUpdate) error {
	set := "version = version + 1, updated_at = ?"
	args := []any{time.Now().UTC()}

	if upd.Status != nil {
		set += ", status = ?"
		args = append(args, *upd.Status)
	}
	if upd.WorkflowStage != nil {
		set += ", workflow_stage = ?"
		args = append(args, *upd.WorkflowStage)
	}
	if upd.WorkStartedAt != nil {
		set += ", work_started_at = ?"
		args = append(args, *upd.WorkStartedAt)
	}

	args = append(args, id, version)
	result, err := pick(tx, r.db).ExecContext(ctx,
		"UPDATE tenders SET "+set+" WHERE id = ? AND version = ?", args...)
	if err != nil {
		r.logger.Error("Failed to update tender", zap.String("tender_id", id), zap.Error(err))
		return fmt.Errorf("failed to update tender: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// TenderFilter narrows tender listings
type TenderFilter struct {
	DepartmentID string
	Status       models.TenderStatus
	Stage        models.TenderStage
	Category     models.IssueCategory
	Limit        int
	Offset       int
}

// List returns tenders matching the filter, newest first
func (r *TenderRepository) List(ctx context.Context, filter TenderFilter) ([]*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE 1=1`
	var args []any

	if filter.DepartmentID != "" {
		query += " AND department_id = ?"
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Stage != "" {
		query += " AND workflow_stage = ?"
		args = append(args, filter.Stage)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.queryTenders(ctx, query, args...)
}

// ListForContractor returns the tenders a contractor participates in:
// every tender they hold at least one bid on. Tenders won through any
// route still satisfy this because awarding requires an accepted bid.
func (r *TenderRepository) ListForContractor(ctx context.Context, contractorID string) ([]*models.Tender, error) {
	query := `SELECT ` + tenderColumns + `
		FROM tenders
		WHERE id IN (SELECT tender_id FROM bids WHERE contractor_id = ?)
		ORDER BY created_at DESC
	`
	return r.queryTenders(ctx, query, contractorID)
}

func (r *TenderRepository) queryTenders(ctx context.Context, query string, args ...any) ([]*models.Tender, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders: %w", err)
	}
	defer rows.Close()

	var tenders []*models.Tender
	for rows.Next() {
		t, err := scanTenderFrom(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

func scanTenderFrom(s rowScanner) (*models.Tender, error) {
	var t models.Tender
	var sourceIssue sql.NullString
	var workStartedAt sql.NullTime

	err := s.Scan(
		&t.ID,
		&sourceIssue,
		&t.DepartmentID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Location.Name,
		&t.Location.Address,
		&t.Location.Area,
		&t.Location.Ward,
		&t.Location.Latitude,
		&t.Location.Longitude,
		&t.BudgetMin,
		&t.BudgetMax,
		&t.Deadline,
		&t.SubmissionDeadline,
		&t.Status,
		&t.WorkflowStage,
		&t.AwardedContractorID,
		&t.AwardedAmount,
		&workStartedAt,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan tender: %w", err)
	}

	if sourceIssue.Valid {
		t.SourceIssueID = sourceIssue.String
	}
	if workStartedAt.Valid {
		t.WorkStartedAt = &workStartedAt.Time
	}
	return &t, nil
}
