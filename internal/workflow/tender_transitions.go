package workflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/identity"
	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/realtime"
	"github.com/opencivic/civicflow/internal/repository"
)

// SubmitBidInput is a contractor's offer against a tender
type SubmitBidInput struct {
	Amount   float64 `json:"amount"`
	Details  string  `json:"details"`
	Timeline string  `json:"timeline"`
}

// SubmitBid files a contractor's bid on an available tender. One bid
// per contractor per tender.
func (e *Engine) SubmitBid(ctx context.Context, actor identity.Actor, tenderID string, input SubmitBidInput) (*models.Bid, error) {
	if actor.Role != models.RoleContractor {
		return nil, unauthorized("role", "only a contractor may submit a bid")
	}
	if input.Amount <= 0 {
		return nil, validation("amount", "bid amount must be positive")
	}

	var bid *models.Bid
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		tender, err := e.tenders.GetByID(ctx, tx, tenderID)
		if err != nil {
			return mapRepoErr(err, "", "tender")
		}

		if tender.Status != models.TenderStatusAvailable {
			return invalidTransition("tender_status", "tender %s is no longer accepting bids", tenderID)
		}

		bid = &models.Bid{
			ID:           uuid.NewString(),
			TenderID:     tender.ID,
			ContractorID: actor.ID,
			Amount:       input.Amount,
			Details:      input.Details,
			Timeline:     input.Timeline,
			Status:       models.BidStatusSubmitted,
			SubmittedAt:  time.Now().UTC(),
		}
		if err := e.bids.Create(ctx, tx, bid); err != nil {
			return mapRepoErr(err, "one_bid_per_contractor", "bid")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Bid submitted",
		zap.String("bid_id", bid.ID),
		zap.String("tender_id", tenderID),
		zap.String("contractor_id", actor.ID))

	e.publish(ctx, "bid", bid.ID, realtime.ChangeCreated)
	return bid, nil
}

// AcceptBid awards the tender to one bid and rejects every sibling in
// the same transaction. The award is conditioned on the tender still
// being available at the version it was read, so of two racing accepts
// exactly one wins and the other gets a conflict.
func (e *Engine) AcceptBid(ctx context.Context, actor identity.Actor, bidID string) (*models.Tender, error) {
	if actor.Role != models.RoleDepartmentAdmin {
		return nil, unauthorized("role", "only a department admin may accept a bid")
	}

	var tender *models.Tender
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		bid, err := e.bids.GetByID(ctx, tx, bidID)
		if err != nil {
			return mapRepoErr(err, "", "bid")
		}
		if bid.Status != models.BidStatusSubmitted {
			return invalidTransition("bid_status", "bid %s was already %s", bidID, bid.Status)
		}

		tender, err = e.tenders.GetByID(ctx, tx, bid.TenderID)
		if err != nil {
			return mapRepoErr(err, "", "tender")
		}
		if actor.AssignedDepartmentID == "" || tender.DepartmentID != actor.AssignedDepartmentID {
			return unauthorized("assigned_department", "tender belongs to another department")
		}

		if _, err := e.nextTenderStage(ctx, tender.WorkflowStage, TriggerAcceptBid); err != nil {
			return err
		}

		if err := e.bids.SetStatus(ctx, tx, bid.ID, models.BidStatusAccepted); err != nil {
			return mapRepoErr(err, "bid_status", "bid")
		}
		if err := e.bids.RejectSiblings(ctx, tx, tender.ID, bid.ID); err != nil {
			return mapRepoErr(err, "", "bids")
		}
		if err := e.tenders.Award(ctx, tx, tender.ID, tender.Version, bid.ContractorID, bid.Amount); err != nil {
			return mapRepoErr(err, "tender_available", "tender")
		}

		tender.Status = models.TenderStatusAwarded
		tender.WorkflowStage = models.TenderStageAwarded
		tender.AwardedContractorID = bid.ContractorID
		tender.AwardedAmount = bid.Amount
		tender.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Bid accepted",
		zap.String("bid_id", bidID),
		zap.String("tender_id", tender.ID),
		zap.String("contractor_id", tender.AwardedContractorID))

	e.publish(ctx, "tender", tender.ID, realtime.ChangeAwarded)
	return tender, nil
}

// StartWork moves an awarded tender into work_in_progress. Only the
// awarded contractor may start.
func (e *Engine) StartWork(ctx context.Context, actor identity.Actor, tenderID string) (*models.Tender, error) {
	if actor.Role != models.RoleContractor {
		return nil, unauthorized("role", "only a contractor may start work")
	}

	var tender *models.Tender
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		tender, err = e.tenders.GetByID(ctx, tx, tenderID)
		if err != nil {
			return mapRepoErr(err, "", "tender")
		}
		if tender.AwardedContractorID != actor.ID {
			return unauthorized("awarded_contractor", "tender was not awarded to you")
		}

		next, err := e.nextTenderStage(ctx, tender.WorkflowStage, TriggerStartWork)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := e.tenders.UpdateWorkflow(ctx, tx, tender.ID, tender.Version, repository.TenderUpdate{
			WorkflowStage: &next,
			WorkStartedAt: &now,
		}); err != nil {
			return mapRepoErr(err, "workflow_stage", "tender")
		}

		tender.WorkflowStage = next
		tender.WorkStartedAt = &now
		tender.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Work started",
		zap.String("tender_id", tenderID),
		zap.String("contractor_id", actor.ID))

	e.publish(ctx, "tender", tenderID, realtime.ChangeStageChanged)
	return tender, nil
}

// SubmitProgressInput is a contractor's progress or completion report
type SubmitProgressInput struct {
	ProgressType       models.ProgressType `json:"progress_type"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	ProgressPercentage int                 `json:"progress_percentage"`
	ImageURLs          []string            `json:"image_urls,omitempty"`
	MaterialsUsed      string              `json:"materials_used,omitempty"`
	ChallengesFaced    string              `json:"challenges_faced,omitempty"`
}

// SubmitProgress files a progress report on a tender in progress. A
// completion-type report also moves the tender to work_completed,
// awaiting department verification; an update-type report leaves the
// stage unchanged.
func (e *Engine) SubmitProgress(ctx context.Context, actor identity.Actor, tenderID string, input SubmitProgressInput) (*models.WorkProgress, error) {
	if actor.Role != models.RoleContractor {
		return nil, unauthorized("role", "only a contractor may submit work progress")
	}
	if !input.ProgressType.IsValid() {
		return nil, validation("progress_type", "unknown progress type %q", input.ProgressType)
	}
	if input.Title == "" {
		return nil, validation("title", "progress title is required")
	}
	if input.ProgressPercentage < 0 || input.ProgressPercentage > 100 {
		return nil, validation("progress_percentage", "progress percentage must be between 0 and 100")
	}

	var report *models.WorkProgress
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		tender, err := e.tenders.GetByID(ctx, tx, tenderID)
		if err != nil {
			return mapRepoErr(err, "", "tender")
		}
		if tender.AwardedContractorID != actor.ID {
			return unauthorized("awarded_contractor", "tender was not awarded to you")
		}
		if tender.WorkflowStage != models.TenderStageWorkInProgress {
			return invalidTransition("workflow_stage", "tender %s is not in progress", tenderID)
		}

		report = &models.WorkProgress{
			ID:                 uuid.NewString(),
			TenderID:           tender.ID,
			ContractorID:       actor.ID,
			ProgressType:       input.ProgressType,
			Title:              input.Title,
			Description:        input.Description,
			ProgressPercentage: input.ProgressPercentage,
			ImageURLs:          input.ImageURLs,
			MaterialsUsed:      input.MaterialsUsed,
			ChallengesFaced:    input.ChallengesFaced,
			Status:             models.ProgressStatusSubmitted,
			CreatedAt:          time.Now().UTC(),
		}
		if err := e.progress.Create(ctx, tx, report); err != nil {
			return mapRepoErr(err, "", "work progress")
		}

		if input.ProgressType == models.ProgressTypeCompletion {
			next, err := e.nextTenderStage(ctx, tender.WorkflowStage, TriggerSubmitCompletion)
			if err != nil {
				return err
			}
			if err := e.tenders.UpdateWorkflow(ctx, tx, tender.ID, tender.Version, repository.TenderUpdate{
				WorkflowStage: &next,
			}); err != nil {
				return mapRepoErr(err, "workflow_stage", "tender")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Work progress submitted",
		zap.String("progress_id", report.ID),
		zap.String("tender_id", tenderID),
		zap.String("progress_type", string(report.ProgressType)))

	e.publish(ctx, "work_progress", report.ID, realtime.ChangeCreated)
	if report.ProgressType == models.ProgressTypeCompletion {
		e.publish(ctx, "tender", tenderID, realtime.ChangeStageChanged)
	}
	return report, nil
}

// VerifyWork records a department admin's decision on a submitted
// completion report. Approval cascades in one transaction: the report
// is approved, the tender completes and verifies, and the source issue
// resolves. Rejection returns the tender to work_in_progress so the
// contractor can resubmit; the issue is untouched.
func (e *Engine) VerifyWork(ctx context.Context, actor identity.Actor, progressID string, approve bool, notes string) (*models.WorkProgress, error) {
	if actor.Role != models.RoleDepartmentAdmin {
		return nil, unauthorized("role", "only a department admin may verify work")
	}

	var report *models.WorkProgress
	var tenderID, issueID string
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		report, err = e.progress.GetByID(ctx, tx, progressID)
		if err != nil {
			return mapRepoErr(err, "", "work progress")
		}
		if report.ProgressType != models.ProgressTypeCompletion {
			return validation("progress_type", "only completion reports require verification")
		}
		if report.Status != models.ProgressStatusSubmitted {
			return invalidTransition("progress_status", "report %s was already %s", progressID, report.Status)
		}

		tender, err := e.tenders.GetByID(ctx, tx, report.TenderID)
		if err != nil {
			return mapRepoErr(err, "", "tender")
		}
		if actor.AssignedDepartmentID == "" || tender.DepartmentID != actor.AssignedDepartmentID {
			return unauthorized("assigned_department", "tender belongs to another department")
		}
		tenderID = tender.ID

		trigger := TriggerApproveWork
		decision := models.ProgressStatusApproved
		if !approve {
			trigger = TriggerRejectWork
			decision = models.ProgressStatusRejected
		}
		next, err := e.nextTenderStage(ctx, tender.WorkflowStage, trigger)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := e.progress.Verify(ctx, tx, report.ID, decision, actor.ID, notes, now); err != nil {
			return mapRepoErr(err, "progress_status", "work progress")
		}
		report.Status = decision
		report.VerifiedBy = actor.ID
		report.VerifiedAt = &now
		report.VerificationNotes = notes

		upd := repository.TenderUpdate{WorkflowStage: &next}
		if approve {
			completed := models.TenderStatusCompleted
			upd.Status = &completed
		}
		if err := e.tenders.UpdateWorkflow(ctx, tx, tender.ID, tender.Version, upd); err != nil {
			return mapRepoErr(err, "workflow_stage", "tender")
		}

		if approve && tender.SourceIssueID != "" {
			issue, err := e.issues.GetByID(ctx, tx, tender.SourceIssueID)
			if err != nil {
				return mapRepoErr(err, "", "issue")
			}
			issueID = issue.ID

			nextIssue, err := e.nextIssueStage(ctx, issue.WorkflowStage, TriggerVerifyResolution)
			if err != nil {
				return err
			}
			resolved := models.IssueStatusResolved
			if err := e.issues.UpdateWorkflow(ctx, tx, issue.ID, issue.Version, repository.IssueUpdate{
				Status:        &resolved,
				WorkflowStage: &nextIssue,
				ResolvedAt:    &now,
			}); err != nil {
				return mapRepoErr(err, "workflow_stage", "issue")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Work verified",
		zap.String("progress_id", progressID),
		zap.String("tender_id", tenderID),
		zap.Bool("approved", approve))

	e.publish(ctx, "tender", tenderID, realtime.ChangeStageChanged)
	if issueID != "" {
		e.publish(ctx, "issue", issueID, realtime.ChangeResolved)
	}
	return report, nil
}
