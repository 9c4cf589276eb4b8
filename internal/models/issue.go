package models

import "time"

// IssueCategory classifies a reported civic issue
type IssueCategory string

const (
	CategoryRoads       IssueCategory = "roads"
	CategoryUtilities   IssueCategory = "utilities"
	CategoryEnvironment IssueCategory = "environment"
	CategorySafety      IssueCategory = "safety"
	CategoryParks       IssueCategory = "parks"
	CategoryOther       IssueCategory = "other"
)

var validCategories = map[IssueCategory]bool{
	CategoryRoads:       true,
	CategoryUtilities:   true,
	CategoryEnvironment: true,
	CategorySafety:      true,
	CategoryParks:       true,
	CategoryOther:       true,
}

// IsValid returns true if the category is a known issue category
func (c IssueCategory) IsValid() bool {
	return validCategories[c]
}

// IssuePriority is the reporter-declared urgency of an issue
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

var validPriorities = map[IssuePriority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsValid returns true if the priority is a known priority level
func (p IssuePriority) IsValid() bool {
	return validPriorities[p]
}

// IssueStatus is the coarse citizen-facing status of an issue,
// distinct from the authoritative workflow stage.
type IssueStatus string

const (
	IssueStatusPending      IssueStatus = "pending"
	IssueStatusAcknowledged IssueStatus = "acknowledged"
	IssueStatusInProgress   IssueStatus = "in_progress"
	IssueStatusResolved     IssueStatus = "resolved"
)

var validIssueStatuses = map[IssueStatus]bool{
	IssueStatusPending:      true,
	IssueStatusAcknowledged: true,
	IssueStatusInProgress:   true,
	IssueStatusResolved:     true,
}

// IsValid returns true if the status is a known issue status
func (s IssueStatus) IsValid() bool {
	return validIssueStatuses[s]
}

// IssueStage is the state-machine position of an issue in the
// reporting-to-resolution workflow.
type IssueStage string

const (
	StageReported           IssueStage = "reported"
	StageAreaReview         IssueStage = "area_review"
	StageDepartmentAssigned IssueStage = "department_assigned"
	StageContractorAssigned IssueStage = "contractor_assigned"
	StageDepartmentReview   IssueStage = "department_review"
	StageResolved           IssueStage = "resolved"
)

// issueStageOrder defines the forward ordering of the issue workflow.
// reported and area_review share an ordinal: both mean "awaiting area
// triage" and accept the same outgoing transition.
var issueStageOrder = map[IssueStage]int{
	StageReported:           0,
	StageAreaReview:         0,
	StageDepartmentAssigned: 1,
	StageContractorAssigned: 2,
	StageDepartmentReview:   3,
	StageResolved:           4,
}

// IsValid returns true if the stage is a known issue workflow stage
func (s IssueStage) IsValid() bool {
	_, ok := issueStageOrder[s]
	return ok
}

// IsTerminal returns true once the issue has reached resolution
func (s IssueStage) IsTerminal() bool {
	return s == StageResolved
}

// Before reports whether s comes strictly before other in the workflow
func (s IssueStage) Before(other IssueStage) bool {
	return issueStageOrder[s] < issueStageOrder[other]
}

// String returns the string representation of the stage
func (s IssueStage) String() string {
	return string(s)
}

// Location is the civic location an issue was reported at
type Location struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Area      string   `json:"area"`
	Ward      string   `json:"ward"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Issue is a citizen-reported civic problem tracked through the
// resolution workflow. Status and WorkflowStage are only ever written
// by the workflow engine; Version is the optimistic-concurrency token
// on those writes.
type Issue struct {
	ID                   string        `json:"id"`
	ReporterID           string        `json:"reporter_id"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Category             IssueCategory `json:"category"`
	Priority             IssuePriority `json:"priority"`
	Status               IssueStatus   `json:"status"`
	WorkflowStage        IssueStage    `json:"workflow_stage"`
	Location             Location      `json:"location"`
	AttachmentURLs       []string      `json:"attachment_urls,omitempty"`
	AssignedAreaID       string        `json:"assigned_area_id,omitempty"`
	AssignedDepartmentID string        `json:"assigned_department_id,omitempty"`
	CurrentAssigneeID    string        `json:"current_assignee_id,omitempty"`
	ResolutionNotes      string        `json:"resolution_notes,omitempty"`
	Version              int64         `json:"version"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
	ResolvedAt           *time.Time    `json:"resolved_at,omitempty"`
}

// AwaitingAreaTriage reports whether the issue is still waiting for an
// area admin to hand it to a department.
func (i *Issue) AwaitingAreaTriage() bool {
	return i.WorkflowStage == StageReported || i.WorkflowStage == StageAreaReview
}
