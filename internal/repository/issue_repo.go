package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// IssueRepository handles issue persistence
type IssueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *sql.DB, logger *zap.Logger) *IssueRepository {
	return &IssueRepository{db: db, logger: logger}
}

const issueColumns = `
	id, reporter_id, title, description, category, priority, status, workflow_stage,
	location_name, location_address, location_area, location_ward, latitude, longitude,
	attachment_urls, assigned_area_id, assigned_department_id, current_assignee_id,
	resolution_notes, version, created_at, updated_at, resolved_at
`

// Create inserts a new issue
func (r *IssueRepository) Create(ctx context.Context, tx *sql.Tx, issue *models.Issue) error {
	query := `
		INSERT INTO issues (
			id, reporter_id, title, description, category, priority, status, workflow_stage,
			location_name, location_address, location_area, location_ward, latitude, longitude,
			attachment_urls, assigned_area_id, assigned_department_id, current_assignee_id,
			resolution_notes, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := pick(tx, r.db).ExecContext(ctx, query,
		issue.ID,
		issue.ReporterID,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Priority,
		issue.Status,
		issue.WorkflowStage,
		issue.Location.Name,
		issue.Location.Address,
		issue.Location.Area,
		issue.Location.Ward,
		issue.Location.Latitude,
		issue.Location.Longitude,
		marshalStrings(issue.AttachmentURLs),
		issue.AssignedAreaID,
		issue.AssignedDepartmentID,
		issue.CurrentAssigneeID,
		issue.ResolutionNotes,
		issue.Version,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create issue", zap.Error(err))
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

// GetByID retrieves an issue by id
func (r *IssueRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = ?`
	return scanIssue(pick(tx, r.db).QueryRowContext(ctx, query, id))
}

// IssueUpdate carries the workflow-owned fields one transition writes.
// Nil pointer fields are left unchanged.
type IssueUpdate struct {
	Status               *models.IssueStatus
	WorkflowStage        *models.IssueStage
	AssignedDepartmentID *string
	CurrentAssigneeID    *string
	ResolutionNotes      *string
	ResolvedAt           *time.Time
}

// UpdateWorkflow applies a transition's field updates with a
// compare-and-set on the issue's version. Returns ErrVersionConflict
// if the issue changed since it was read.
func (r *IssueRepository) UpdateWorkflow(ctx context.Context, tx *sql.Tx, id string, version int64, upd IssueUpdate) error {
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
	if upd.AssignedDepartmentID != nil {
		set += ", assigned_department_id = ?"
		args = append(args, *upd.AssignedDepartmentID)
	}
	if upd.CurrentAssigneeID != nil {
		set += ", current_assignee_id = ?"
		args = append(args, *upd.CurrentAssigneeID)
	}
	if upd.ResolutionNotes != nil {
		set += ", resolution_notes = ?"
		args = append(args, *upd.ResolutionNotes)
	}
	if upd.ResolvedAt != nil {
		set += ", resolved_at = ?"
		args = append(args, *upd.ResolvedAt)
	}

	args = append(args, id, version)
	result, err := pick(tx, r.db).ExecContext(ctx,
		"UPDATE issues SET "+set+" WHERE id = ? AND version = ?", args...)
	if err != nil {
		r.logger.Error("Failed to update issue", zap.String("issue_id", id), zap.Error(err))
		return fmt.Errorf("failed to update issue: %w", err)
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

// IssueFilter narrows issue listings
type IssueFilter struct {
	Stage        models.IssueStage
	Status       models.IssueStatus
	Category     models.IssueCategory
	Area         string
	DepartmentID string
	ReporterID   string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// List returns issues matching the filter, newest first
func (r *IssueRepository) List(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += " AND workflow_stage = ?"
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Area != "" {
		query += " AND location_area = ?"
		args = append(args, filter.Area)
	}
	if filter.DepartmentID != "" {
		query += " AND assigned_department_id = ?"
		args = append(args, filter.DepartmentID)
	}
	if filter.ReporterID != "" {
		query += " AND reporter_id = ?"
		args = append(args, filter.ReporterID)
	}
	if filter.CreatedFrom != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query += " AND created_at <= ?"
		args = append(args, *filter.CreatedTo)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []*models.Issue
	for rows.Next() {
		issue, err := scanIssueRows(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssueFrom(s rowScanner) (*models.Issue, error) {
	var issue models.Issue
	var attachments string
	var resolvedAt sql.NullTime

	err := s.Scan(
		&issue.ID,
		&issue.ReporterID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Priority,
		&issue.Status,
		&issue.WorkflowStage,
		&issue.Location.Name,
		&issue.Location.Address,
		&issue.Location.Area,
		&issue.Location.Ward,
		&issue.Location.Latitude,
		&issue.Location.Longitude,
		&attachments,
		&issue.AssignedAreaID,
		&issue.AssignedDepartmentID,
		&issue.CurrentAssigneeID,
		&issue.ResolutionNotes,
		&issue.Version,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	issue.AttachmentURLs = unmarshalStrings(attachments)
	if resolvedAt.Valid {
		issue.ResolvedAt = &resolvedAt.Time
	}
	return &issue, nil
}

func scanIssue(row *sql.Row) (*models.Issue, error) {
	return scanIssueFrom(row)
}

func scanIssueRows(rows *sql.Rows) (*models.Issue, error) {
	return scanIssueFrom(rows)
}
