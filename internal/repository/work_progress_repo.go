package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// WorkProgressRepository handles contractor progress reports
type WorkProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkProgressRepository creates a new work progress repository
func NewWorkProgressRepository(db *sql.DB, logger *zap.Logger) *WorkProgressRepository {
	return &WorkProgressRepository{db: db, logger: logger}
}

const progressColumns = `
	id, tender_id, contractor_id, progress_type, title, description, progress_percentage,
	image_urls, materials_used, challenges_faced, status, verified_by, verified_at,
	verification_notes, created_at
`

// Create inserts a new progress report
func (r *WorkProgressRepository) Create(ctx context.Context, tx *sql.Tx, p *models.WorkProgress) error {
	query := `
		INSERT INTO work_progress (
			id, tender_id, contractor_id, progress_type, title, description, progress_percentage,
			image_urls, materials_used, challenges_faced, status, verified_by,
			verification_notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := pick(tx, r.db).ExecContext(ctx, query,
		p.ID,
		p.TenderID,
		p.ContractorID,
		p.ProgressType,
		p.Title,
		p.Description,
		p.ProgressPercentage,
		marshalStrings(p.ImageURLs),
		p.MaterialsUsed,
		p.ChallengesFaced,
		p.Status,
		p.VerifiedBy,
		p.VerificationNotes,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create work progress", zap.String("tender_id", p.TenderID), zap.Error(err))
		return fmt.Errorf("failed to create work progress: %w", err)
	}
	return nil
}

// GetByID retrieves a progress report by id
func (r *WorkProgressRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.WorkProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM work_progress WHERE id = ?`
	return scanProgressFrom(pick(tx, r.db).QueryRowContext(ctx, query, id))
}

// Verify records a department admin's decision on a submitted report.
// Conditioned on status still being submitted, so a report cannot be
// verified twice.
func (r *WorkProgressRepository) Verify(ctx context.Context, tx *sql.Tx, id string, status models.ProgressStatus, verifiedBy, notes string, at time.Time) error {
	result, err := pick(tx, r.db).ExecContext(ctx, `
		UPDATE work_progress
		SET status = ?, verified_by = ?, verified_at = ?, verification_notes = ?
		WHERE id = ? AND status = ?
	`, status, verifiedBy, at, notes, id, models.ProgressStatusSubmitted)
	if err != nil {
		r.logger.Error("Failed to verify work progress", zap.String("progress_id", id), zap.Error(err))
		return fmt.Errorf("failed to verify work progress: %w", err)
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

// ListByTender returns all progress reports on a tender, newest first
func (r *WorkProgressRepository) ListByTender(ctx context.Context, tenderID string) ([]*models.WorkProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM work_progress WHERE tender_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work progress: %w", err)
	}
	defer rows.Close()

	var reports []*models.WorkProgress
	for rows.Next() {
		p, err := scanProgressFrom(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, p)
	}
	return reports, rows.Err()
}

func scanProgressFrom(s rowScanner) (*models.WorkProgress, error) {
	var p models.WorkProgress
	var images string
	var verifiedAt sql.NullTime

	err := s.Scan(
		&p.ID,
		&p.TenderID,
		&p.ContractorID,
		&p.ProgressType,
		&p.Title,
		&p.Description,
		&p.ProgressPercentage,
		&images,
		&p.MaterialsUsed,
		&p.ChallengesFaced,
		&p.Status,
		&p.VerifiedBy,
		&verifiedAt,
		&p.VerificationNotes,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan work progress: %w", err)
	}

	p.ImageURLs = unmarshalStrings(images)
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	return &p, nil
}
