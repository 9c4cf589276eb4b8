package models

import "time"

// ProgressType distinguishes routine updates from completion reports
type ProgressType string

const (
	ProgressTypeUpdate     ProgressType = "update"
	ProgressTypeCompletion ProgressType = "completion"
)

// IsValid returns true if the type is a known progress type
func (t ProgressType) IsValid() bool {
	return t == ProgressTypeUpdate || t == ProgressTypeCompletion
}

// ProgressStatus is the verification state of a progress report
type ProgressStatus string

const (
	ProgressStatusSubmitted ProgressStatus = "submitted"
	ProgressStatusApproved  ProgressStatus = "approved"
	ProgressStatusRejected  ProgressStatus = "rejected"
)

// IsValid returns true if the status is a known progress status
func (s ProgressStatus) IsValid() bool {
	return s == ProgressStatusSubmitted || s == ProgressStatusApproved || s == ProgressStatusRejected
}

// WorkProgress is a contractor-filed update or completion report
// against an awarded tender. A completion report must be verified by a
// department admin before the tender can reach the verified stage;
// rejecting it returns the tender to work_in_progress.
type WorkProgress struct {
	ID                 string         `json:"id"`
	TenderID           string         `json:"tender_id"`
	ContractorID       string         `json:"contractor_id"`
	ProgressType       ProgressType   `json:"progress_type"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	ProgressPercentage int            `json:"progress_percentage"`
	ImageURLs          []string       `json:"image_urls,omitempty"`
	MaterialsUsed      string         `json:"materials_used,omitempty"`
	ChallengesFaced    string         `json:"challenges_faced,omitempty"`
	Status             ProgressStatus `json:"status"`
	VerifiedBy         string         `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty"`
	VerificationNotes  string         `json:"verification_notes,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}
