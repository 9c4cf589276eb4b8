package models

import "time"

// TenderStatus is the coarse procurement status of a tender
type TenderStatus string

const (
	TenderStatusAvailable TenderStatus = "available"
	TenderStatusAwarded   TenderStatus = "awarded"
	TenderStatusCompleted TenderStatus = "completed"
)

var validTenderStatuses = map[TenderStatus]bool{
	TenderStatusAvailable: true,
	TenderStatusAwarded:   true,
	TenderStatusCompleted: true,
}

// IsValid returns true if the status is a known tender status
func (s TenderStatus) IsValid() bool {
	return validTenderStatuses[s]
}

// TenderStage is the state-machine position of a tender from creation
// through verified completion.
type TenderStage string

const (
	TenderStageCreated        TenderStage = "created"
	TenderStageAwarded        TenderStage = "awarded"
	TenderStageWorkInProgress TenderStage = "work_in_progress"
	TenderStageWorkCompleted  TenderStage = "work_completed"
	TenderStageVerified       TenderStage = "verified"
)

var validTenderStages = map[TenderStage]bool{
	TenderStageCreated:        true,
	TenderStageAwarded:        true,
	TenderStageWorkInProgress: true,
	TenderStageWorkCompleted:  true,
	TenderStageVerified:       true,
}

// IsValid returns true if the stage is a known tender workflow stage
func (s TenderStage) IsValid() bool {
	return validTenderStages[s]
}

// IsTerminal returns true once the tender's work has been verified
func (s TenderStage) IsTerminal() bool {
	return s == TenderStageVerified
}

// String returns the string representation of the stage
func (s TenderStage) String() string {
	return string(s)
}

// Tender is a procurement request a department opens for contractors
// to bid on, derived from an issue in department_assigned stage. At
// most one tender exists per source issue. Version is the
// optimistic-concurrency token guarding award races.
type Tender struct {
	ID                  string       `json:"id"`
	SourceIssueID       string       `json:"source_issue_id,omitempty"`
	DepartmentID        string       `json:"department_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            IssueCategory `json:"category"`
	Location            Location     `json:"location"`
	BudgetMin           float64      `json:"budget_min"`
	BudgetMax           float64      `json:"budget_max"`
	Deadline            time.Time    `json:"deadline"`
	SubmissionDeadline  time.Time    `json:"submission_deadline"`
	Status              TenderStatus `json:"status"`
	WorkflowStage       TenderStage  `json:"workflow_stage"`
	AwardedContractorID string       `json:"awarded_contractor_id,omitempty"`
	AwardedAmount       float64      `json:"awarded_amount,omitempty"`
	WorkStartedAt       *time.Time   `json:"work_started_at,omitempty"`
	Version             int64        `json:"version"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
