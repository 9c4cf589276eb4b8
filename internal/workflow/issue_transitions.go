package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/gamification"
	"github.com/opencivic/civicflow/internal/identity"
	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/realtime"
	"github.com/opencivic/civicflow/internal/repository"
)

// ReportIssueInput is what a citizen files to open an issue
type ReportIssueInput struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Category       models.IssueCategory `json:"category"`
	Priority       models.IssuePriority `json:"priority"`
	Location       models.Location      `json:"location"`
	AttachmentURLs []string             `json:"attachment_urls,omitempty"`
}

// ReportIssue files a new issue on behalf of the acting citizen. The
// reporter's point award and the change event are best effort and run
// after the issue committed.
func (e *Engine) ReportIssue(ctx context.Context, actor identity.Actor, input ReportIssueInput) (*models.Issue, error) {
	if input.Title == "" {
		return nil, validation("title", "issue title is required")
	}
	if input.Description == "" {
		return nil, validation("description", "issue description is required")
	}
	if !input.Category.IsValid() {
		return nil, validation("category", "unknown issue category %q", input.Category)
	}
	if !input.Priority.IsValid() {
		return nil, validation("priority", "unknown issue priority %q", input.Priority)
	}
	if input.Location.Area == "" {
		return nil, validation("location.area", "issue location area is required")
	}

	now := time.Now().UTC()
	issue := &models.Issue{
		ID:             uuid.NewString(),
		ReporterID:     actor.ID,
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		Priority:       input.Priority,
		Status:         models.IssueStatusPending,
		WorkflowStage:  models.StageReported,
		Location:       input.Location,
		AttachmentURLs: input.AttachmentURLs,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := e.issues.Create(ctx, tx, issue); err != nil {
			return mapRepoErr(err, "", "issue")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Issue reported",
		zap.String("issue_id", issue.ID),
		zap.String("reporter_id", actor.ID),
		zap.String("priority", string(issue.Priority)))

	e.awardPoints(ctx, actor.ID, gamification.PointsForPriority(issue.Priority))
	e.publish(ctx, "issue", issue.ID, realtime.ChangeCreated)

	return issue, nil
}

// AssignToDepartment hands an issue awaiting area triage to a
// department. Only the area super admin for the issue's area may do
// this; the hand-off is recorded as an append-only assignment.
func (e *Engine) AssignToDepartment(ctx context.Context, actor identity.Actor, issueID, departmentID, notes string) (*models.Issue, error) {
	if actor.Role != models.RoleAreaSuperAdmin {
		return nil, unauthorized("role", "only an area super admin may assign an issue to a department")
	}
	if departmentID == "" {
		return nil, validation("department_id", "department id is required")
	}

	active, err := e.users.DepartmentActive(ctx, departmentID)
	if err != nil {
		return nil, dependency(err, "failed to check department %s", departmentID)
	}
	if !active {
		return nil, validation("department_id", "department %s is not valid or has no active admins", departmentID)
	}

	var issue *models.Issue
	err = e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		issue, err = e.issues.GetByID(ctx, tx, issueID)
		if err != nil {
			return mapRepoErr(err, "", "issue")
		}

		if actor.AssignedAreaName == "" || issue.Location.Area != actor.AssignedAreaName {
			return unauthorized("assigned_area", "issue area %q is outside your assigned area", issue.Location.Area)
		}

		next, err := e.nextIssueStage(ctx, issue.WorkflowStage, TriggerAssignDepartment)
		if err != nil {
			return err
		}

		assignment := &models.IssueAssignment{
			ID:             uuid.NewString(),
			IssueID:        issue.ID,
			AssignedBy:     actor.ID,
			AssignmentType: models.AssignmentAreaToDepartment,
			TargetID:       departmentID,
			Notes:          notes,
			Status:         models.AssignmentStatusActive,
			CreatedAt:      time.Now().UTC(),
		}
		if err := e.assignments.Create(ctx, tx, assignment); err != nil {
			return mapRepoErr(err, "", "assignment")
		}

		status := models.IssueStatusAcknowledged
		if err := e.issues.UpdateWorkflow(ctx, tx, issue.ID, issue.Version, repository.IssueUpdate{
			Status:               &status,
			WorkflowStage:        &next,
			AssignedDepartmentID: &departmentID,
		}); err != nil {
			return mapRepoErr(err, "workflow_stage", "issue")
		}

		issue.Status = status
		issue.WorkflowStage = next
		issue.AssignedDepartmentID = departmentID
		issue.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Issue assigned to department",
		zap.String("issue_id", issueID),
		zap.String("department_id", departmentID),
		zap.String("assigned_by", actor.ID))

	e.publish(ctx, "issue", issueID, realtime.ChangeStageChanged)
	return issue, nil
}

// CreateTenderInput is what a department admin supplies to open a
// tender from an issue.
type CreateTenderInput struct {
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	BudgetMin          float64   `json:"budget_min"`
	BudgetMax          float64   `json:"budget_max"`
	Deadline           time.Time `json:"deadline"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
}

// CreateTender derives a tender from an issue assigned to the acting
// department admin's department. At most one tender may ever exist per
// issue; a second attempt fails with a conflict.
func (e *Engine) CreateTender(ctx context.Context, actor identity.Actor, issueID string, input CreateTenderInput) (*models.Tender, error) {
	if actor.Role != models.RoleDepartmentAdmin {
		return nil, unauthorized("role", "only a department admin may create a tender")
	}
	if input.Title == "" {
		return nil, validation("title", "tender title is required")
	}
	if input.Deadline.IsZero() {
		return nil, validation("deadline", "tender deadline is required")
	}
	if input.SubmissionDeadline.IsZero() {
		return nil, validation("submission_deadline", "tender submission deadline is required")
	}
	if input.BudgetMax > 0 && input.BudgetMin > input.BudgetMax {
		return nil, validation("budget", "budget minimum exceeds maximum")
	}

	var tender *models.Tender
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		issue, err := e.issues.GetByID(ctx, tx, issueID)
		if err != nil {
			return mapRepoErr(err, "", "issue")
		}

		if actor.AssignedDepartmentID == "" || issue.AssignedDepartmentID != actor.AssignedDepartmentID {
			return unauthorized("assigned_department", "issue is not assigned to your department")
		}

		next, err := e.nextIssueStage(ctx, issue.WorkflowStage, TriggerCreateTender)
		if err != nil {
			return err
		}

		// The unique index on source_issue_id backs this check, but
		// checking first gives the caller a precise error.
		if _, err := e.tenders.GetBySourceIssue(ctx, tx, issueID); err == nil {
			return conflict("one_tender_per_issue", "a tender already exists for issue %s", issueID)
		} else if !isNotFound(err) {
			return mapRepoErr(err, "", "tender")
		}

		now := time.Now().UTC()
		tender = &models.Tender{
			ID:                 uuid.NewString(),
			SourceIssueID:      issue.ID,
			DepartmentID:       actor.AssignedDepartmentID,
			Title:              input.Title,
			Description:        input.Description,
			Category:           issue.Category,
			Location:           issue.Location,
			BudgetMin:          input.BudgetMin,
			BudgetMax:          input.BudgetMax,
			Deadline:           input.Deadline,
			SubmissionDeadline: input.SubmissionDeadline,
			Status:             models.TenderStatusAvailable,
			WorkflowStage:      models.TenderStageCreated,
			Version:            1,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := e.tenders.Create(ctx, tx, tender); err != nil {
			return mapRepoErr(err, "one_tender_per_issue", "tender")
		}

		status := models.IssueStatusInProgress
		if err := e.issues.UpdateWorkflow(ctx, tx, issue.ID, issue.Version, repository.IssueUpdate{
			Status:        &status,
			WorkflowStage: &next,
		}); err != nil {
			return mapRepoErr(err, "workflow_stage", "issue")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Tender created from issue",
		zap.String("tender_id", tender.ID),
		zap.String("issue_id", issueID),
		zap.String("department_id", tender.DepartmentID))

	e.publish(ctx, "tender", tender.ID, realtime.ChangeCreated)
	e.publish(ctx, "issue", issueID, realtime.ChangeStageChanged)
	return tender, nil
}

// MarkCompleteDirectly resolves an issue without tendering. This is a
// first-class alternate path for department admins, not an error case.
func (e *Engine) MarkCompleteDirectly(ctx context.Context, actor identity.Actor, issueID, resolutionNotes string) (*models.Issue, error) {
	if actor.Role != models.RoleDepartmentAdmin {
		return nil, unauthorized("role", "only a department admin may resolve an issue directly")
	}

	var issue *models.Issue
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		issue, err = e.issues.GetByID(ctx, tx, issueID)
		if err != nil {
			return mapRepoErr(err, "", "issue")
		}

		if actor.AssignedDepartmentID == "" || issue.AssignedDepartmentID != actor.AssignedDepartmentID {
			return unauthorized("assigned_department", "issue is not assigned to your department")
		}

		next, err := e.nextIssueStage(ctx, issue.WorkflowStage, TriggerResolveDirect)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		status := models.IssueStatusResolved
		if err := e.issues.UpdateWorkflow(ctx, tx, issue.ID, issue.Version, repository.IssueUpdate{
			Status:          &status,
			WorkflowStage:   &next,
			ResolutionNotes: &resolutionNotes,
			ResolvedAt:      &now,
		}); err != nil {
			return mapRepoErr(err, "workflow_stage", "issue")
		}

		issue.Status = status
		issue.WorkflowStage = next
		issue.ResolutionNotes = resolutionNotes
		issue.ResolvedAt = &now
		issue.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Issue resolved directly",
		zap.String("issue_id", issueID),
		zap.String("resolved_by", actor.ID))

	e.publish(ctx, "issue", issueID, realtime.ChangeResolved)
	return issue, nil
}

// UpdateIssueStatus lets admin roles move the citizen-facing status.
// Resolving also advances the workflow stage and stamps resolved_at;
// other statuses leave the stage untouched.
func (e *Engine) UpdateIssueStatus(ctx context.Context, actor identity.Actor, issueID string, status models.IssueStatus) (*models.Issue, error) {
	if !actor.Role.IsAdmin() {
		return nil, unauthorized("role", "only admin roles may set issue status")
	}
	if !status.IsValid() {
		return nil, validation("status", "unknown issue status %q", status)
	}

	var issue *models.Issue
	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		issue, err = e.issues.GetByID(ctx, tx, issueID)
		if err != nil {
			return mapRepoErr(err, "", "issue")
		}

		if err := checkAdminScope(actor, issue); err != nil {
			return err
		}
		if issue.WorkflowStage.IsTerminal() {
			return invalidTransition("workflow_stage", "issue %s is already resolved", issueID)
		}

		upd := repository.IssueUpdate{Status: &status}
		if status == models.IssueStatusResolved {
			next, err := e.nextIssueStage(ctx, issue.WorkflowStage, TriggerAdminResolve)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			upd.WorkflowStage = &next
			upd.ResolvedAt = &now
			issue.WorkflowStage = next
			issue.ResolvedAt = &now
		}

		if err := e.issues.UpdateWorkflow(ctx, tx, issue.ID, issue.Version, upd); err != nil {
			return mapRepoErr(err, "workflow_stage", "issue")
		}
		issue.Status = status
		issue.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := realtime.ChangeUpdated
	if status == models.IssueStatusResolved {
		kind = realtime.ChangeResolved
	}
	e.publish(ctx, "issue", issueID, kind)
	return issue, nil
}

// checkAdminScope enforces the scoping boundary on direct status
// changes: area admins stay inside their area, department admins
// inside their department.
func checkAdminScope(actor identity.Actor, issue *models.Issue) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleAreaSuperAdmin:
		if actor.AssignedAreaName == "" || issue.Location.Area != actor.AssignedAreaName {
			return unauthorized("assigned_area", "issue area %q is outside your assigned area", issue.Location.Area)
		}
		return nil
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" || issue.AssignedDepartmentID != actor.AssignedDepartmentID {
			return unauthorized("assigned_department", "issue is not assigned to your department")
		}
		return nil
	default:
		return unauthorized("role", "role %s may not act on issues", actor.Role)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
