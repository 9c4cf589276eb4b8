package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// AssignmentRepository handles the append-only issue assignment trail
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{db: db, logger: logger}
}

// Create appends one assignment record. Assignments are never updated
// or deleted afterwards.
func (r *AssignmentRepository) Create(ctx context.Context, tx *sql.Tx, a *models.IssueAssignment) error {
	query := `
		INSERT INTO issue_assignments (id, issue_id, assigned_by, assignment_type, target_id, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := pick(tx, r.db).ExecContext(ctx, query,
		a.ID, a.IssueID, a.AssignedBy, a.AssignmentType, a.TargetID, a.Notes, a.Status, a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create assignment", zap.String("issue_id", a.IssueID), zap.Error(err))
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// ListByIssue returns the assignment trail of an issue, oldest first
func (r *AssignmentRepository) ListByIssue(ctx context.Context, issueID string) ([]*models.IssueAssignment, error) {
	query := `
		SELECT id, issue_id, assigned_by, assignment_type, target_id, notes, status, created_at
		FROM issue_assignments WHERE issue_id = ? ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.IssueAssignment
	for rows.Next() {
		var a models.IssueAssignment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.AssignedBy, &a.AssignmentType, &a.TargetID, &a.Notes, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}
