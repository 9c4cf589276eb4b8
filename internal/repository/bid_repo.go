package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// BidRepository handles bid persistence
type BidRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBidRepository creates a new bid repository
func NewBidRepository(db *sql.DB, logger *zap.Logger) *BidRepository {
	return &BidRepository{db: db, logger: logger}
}

const bidColumns = `id, tender_id, contractor_id, amount, details, timeline, status, submitted_at`

// Create inserts a new bid. A second bid by the same contractor on the
// same tender violates the unique index and returns ErrDuplicate.
func (r *BidRepository) Create(ctx context.Context, tx *sql.Tx, b *models.Bid) error {
	query := `
		INSERT INTO bids (id, tender_id, contractor_id, amount, details, timeline, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := pick(tx, r.db).ExecContext(ctx, query,
		b.ID, b.TenderID, b.ContractorID, b.Amount, b.Details, b.Timeline, b.Status, b.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create bid", zap.String("tender_id", b.TenderID), zap.Error(err))
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

// GetByID retrieves a bid by id
func (r *BidRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = ?`
	return scanBidFrom(pick(tx, r.db).QueryRowContext(ctx, query, id))
}

// SetStatus moves a bid out of submitted. The update is conditioned on
// the bid still being submitted; accepted and rejected bids are
// immutable.
func (r *BidRepository) SetStatus(ctx context.Context, tx *sql.Tx, id string, status models.BidStatus) error {
	result, err := pick(tx, r.db).ExecContext(ctx,
		"UPDATE bids SET status = ? WHERE id = ? AND status = ?",
		status, id, models.BidStatusSubmitted)
	if err != nil {
		r.logger.Error("Failed to update bid status", zap.String("bid_id", id), zap.Error(err))
		return fmt.Errorf("failed to update bid status: %w", err)
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

// RejectSiblings rejects every still-submitted bid on the tender other
// than the accepted one. Runs in the accept-bid transaction so a
// tender can never end up with two live bids.
func (r *BidRepository) RejectSiblings(ctx context.Context, tx *sql.Tx, tenderID, acceptedBidID string) error {
	_, err := pick(tx, r.db).ExecContext(ctx,
		"UPDATE bids SET status = ? WHERE tender_id = ? AND id != ? AND status = ?",
		models.BidStatusRejected, tenderID, acceptedBidID, models.BidStatusSubmitted)
	if err != nil {
		r.logger.Error("Failed to reject sibling bids", zap.String("tender_id", tenderID), zap.Error(err))
		return fmt.Errorf("failed to reject sibling bids: %w", err)
	}
	return nil
}

// ListByTender returns all bids on a tender, newest first
func (r *BidRepository) ListByTender(ctx context.Context, tenderID string) ([]*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE tender_id = ? ORDER BY submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		b, err := scanBidFrom(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// ListByContractor returns all bids a contractor has submitted
func (r *BidRepository) ListByContractor(ctx context.Context, contractorID string) ([]*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE contractor_id = ? ORDER BY submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, contractorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		b, err := scanBidFrom(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func scanBidFrom(s rowScanner) (*models.Bid, error) {
	var b models.Bid
	err := s.Scan(&b.ID, &b.TenderID, &b.ContractorID, &b.Amount, &b.Details, &b.Timeline, &b.Status, &b.SubmittedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan bid: %w", err)
	}
	return &b, nil
}
