package models

import "time"

// AssignmentType names the hand-off an assignment records
type AssignmentType string

const (
	AssignmentAreaToDepartment       AssignmentType = "area_to_department"
	AssignmentDepartmentToContractor AssignmentType = "department_to_contractor"
)

// IssueAssignment is an append-only audit record of an issue hand-off.
// Exactly one is created per stage transition that moves responsibility
// between parties; assignments are never mutated or deleted.
type IssueAssignment struct {
	ID             string         `json:"id"`
	IssueID        string         `json:"issue_id"`
	AssignedBy     string         `json:"assigned_by"`
	AssignmentType AssignmentType `json:"assignment_type"`
	TargetID       string         `json:"target_id"`
	Notes          string         `json:"notes,omitempty"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AssignmentStatusActive is the only status an assignment ever holds;
// the field exists so the trail stays queryable if revocation is added.
const AssignmentStatusActive = "active"
