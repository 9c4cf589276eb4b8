package workflow

import (
	"context"
	"time"

	"github.com/opencivic/civicflow/internal/identity"
	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/repository"
)

// IssueListOptions are the caller-supplied filters on issue listings.
// Scope (area, department, reporter) is derived from the actor and
// cannot be overridden by the caller: it is a security boundary, not a
// convenience filter.
type IssueListOptions struct {
	Stage       models.IssueStage
	Status      models.IssueStatus
	Category    models.IssueCategory
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ListIssues returns the issues the actor is authorized to act on:
// citizens see their own reports, area admins their area, department
// admins their department, platform admins everything.
func (e *Engine) ListIssues(ctx context.Context, actor identity.Actor, opts IssueListOptions) ([]*models.Issue, error) {
	filter := repository.IssueFilter{
		Stage:       opts.Stage,
		Status:      opts.Status,
		Category:    opts.Category,
		CreatedFrom: opts.CreatedFrom,
		CreatedTo:   opts.CreatedTo,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}

	switch actor.Role {
	case models.RoleCitizen:
		filter.ReporterID = actor.ID
	case models.RoleAdmin:
		// unscoped
	case models.RoleAreaSuperAdmin:
		if actor.AssignedAreaName == "" {
			return nil, unauthorized("assigned_area", "no area assigned to your account")
		}
		filter.Area = actor.AssignedAreaName
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" {
			return nil, unauthorized("assigned_department", "no department assigned to your account")
		}
		filter.DepartmentID = actor.AssignedDepartmentID
	default:
		return nil, unauthorized("role", "role %s may not list issues", actor.Role)
	}

	issues, err := e.issues.List(ctx, filter)
	if err != nil {
		return nil, dependency(err, "failed to list issues")
	}
	return issues, nil
}

// GetIssue returns one issue if the actor's scope covers it
func (e *Engine) GetIssue(ctx context.Context, actor identity.Actor, issueID string) (*models.Issue, error) {
	issue, err := e.issues.GetByID(ctx, nil, issueID)
	if err != nil {
		return nil, mapRepoErr(err, "", "issue")
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCitizen:
		if issue.ReporterID != actor.ID {
			return nil, unauthorized("reporter", "issue was reported by someone else")
		}
	case models.RoleAreaSuperAdmin:
		if actor.AssignedAreaName == "" || issue.Location.Area != actor.AssignedAreaName {
			return nil, unauthorized("assigned_area", "issue area %q is outside your assigned area", issue.Location.Area)
		}
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" || issue.AssignedDepartmentID != actor.AssignedDepartmentID {
			return nil, unauthorized("assigned_department", "issue is not assigned to your department")
		}
	default:
		return nil, unauthorized("role", "role %s may not view issues", actor.Role)
	}
	return issue, nil
}

// ListAssignments returns the hand-off trail of an issue for admin roles
func (e *Engine) ListAssignments(ctx context.Context, actor identity.Actor, issueID string) ([]*models.IssueAssignment, error) {
	if !actor.Role.IsAdmin() {
		return nil, unauthorized("role", "only admin roles may view the assignment trail")
	}
	if _, err := e.GetIssue(ctx, actor, issueID); err != nil {
		return nil, err
	}

	assignments, err := e.assignments.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, dependency(err, "failed to list assignments")
	}
	return assignments, nil
}

// TenderListOptions are the caller-supplied filters on tender listings
type TenderListOptions struct {
	Status   models.TenderStatus
	Stage    models.TenderStage
	Category models.IssueCategory
	Limit    int
	Offset   int
}

// ListTenders returns the tenders the actor may see: department admins
// their department's tenders, contractors the open market (available
// tenders), platform admins everything.
func (e *Engine) ListTenders(ctx context.Context, actor identity.Actor, opts TenderListOptions) ([]*models.Tender, error) {
	filter := repository.TenderFilter{
		Status:   opts.Status,
		Stage:    opts.Stage,
		Category: opts.Category,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}

	switch actor.Role {
	case models.RoleAdmin:
		// unscoped
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" {
			return nil, unauthorized("assigned_department", "no department assigned to your account")
		}
		filter.DepartmentID = actor.AssignedDepartmentID
	case models.RoleContractor:
		// Contractors browse the open market here; their own tenders
		// come from ListContractorTenders.
		filter.Status = models.TenderStatusAvailable
	default:
		return nil, unauthorized("role", "role %s may not list tenders", actor.Role)
	}

	tenders, err := e.tenders.List(ctx, filter)
	if err != nil {
		return nil, dependency(err, "failed to list tenders")
	}
	return tenders, nil
}

// ListContractorTenders returns the acting contractor's tenders: every
// tender they hold at least one bid on, whatever its stage.
func (e *Engine) ListContractorTenders(ctx context.Context, actor identity.Actor) ([]*models.Tender, error) {
	if actor.Role != models.RoleContractor {
		return nil, unauthorized("role", "only a contractor may list their tenders")
	}

	tenders, err := e.tenders.ListForContractor(ctx, actor.ID)
	if err != nil {
		return nil, dependency(err, "failed to list contractor tenders")
	}
	return tenders, nil
}

// ListBids returns the bids on a tender. Department admins see all
// bids on their department's tenders; a contractor sees only their
// own bid.
func (e *Engine) ListBids(ctx context.Context, actor identity.Actor, tenderID string) ([]*models.Bid, error) {
	tender, err := e.tenders.GetByID(ctx, nil, tenderID)
	if err != nil {
		return nil, mapRepoErr(err, "", "tender")
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" || tender.DepartmentID != actor.AssignedDepartmentID {
			return nil, unauthorized("assigned_department", "tender belongs to another department")
		}
	case models.RoleContractor:
		bids, err := e.bids.ListByTender(ctx, tenderID)
		if err != nil {
			return nil, dependency(err, "failed to list bids")
		}
		var own []*models.Bid
		for _, b := range bids {
			if b.ContractorID == actor.ID {
				own = append(own, b)
			}
		}
		return own, nil
	default:
		return nil, unauthorized("role", "role %s may not list bids", actor.Role)
	}

	bids, err := e.bids.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, dependency(err, "failed to list bids")
	}
	return bids, nil
}

// ListMyBids returns every bid the acting contractor has submitted,
// across all tenders.
func (e *Engine) ListMyBids(ctx context.Context, actor identity.Actor) ([]*models.Bid, error) {
	if actor.Role != models.RoleContractor {
		return nil, unauthorized("role", "only a contractor may list their bids")
	}

	bids, err := e.bids.ListByContractor(ctx, actor.ID)
	if err != nil {
		return nil, dependency(err, "failed to list bids")
	}
	return bids, nil
}

// ListProgress returns a tender's progress reports for the parties to
// the work: the owning department, the awarded contractor, or a
// platform admin.
func (e *Engine) ListProgress(ctx context.Context, actor identity.Actor, tenderID string) ([]*models.WorkProgress, error) {
	tender, err := e.tenders.GetByID(ctx, nil, tenderID)
	if err != nil {
		return nil, mapRepoErr(err, "", "tender")
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDepartmentAdmin:
		if actor.AssignedDepartmentID == "" || tender.DepartmentID != actor.AssignedDepartmentID {
			return nil, unauthorized("assigned_department", "tender belongs to another department")
		}
	case models.RoleContractor:
		if tender.AwardedContractorID != actor.ID {
			return nil, unauthorized("awarded_contractor", "tender was not awarded to you")
		}
	default:
		return nil, unauthorized("role", "role %s may not list work progress", actor.Role)
	}

	reports, err := e.progress.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, dependency(err, "failed to list work progress")
	}
	return reports, nil
}
