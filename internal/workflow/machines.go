package workflow

import (
	dw "github.com/opencivic/civicflow/internal/domain/workflow"
	"github.com/opencivic/civicflow/internal/models"
)

// Triggers for the issue workflow
const (
	TriggerAssignDepartment dw.Trigger = "ASSIGN_DEPARTMENT"
	TriggerCreateTender     dw.Trigger = "CREATE_TENDER"
	TriggerResolveDirect    dw.Trigger = "RESOLVE_DIRECT"
	TriggerVerifyResolution dw.Trigger = "VERIFY_RESOLUTION"
	TriggerAdminResolve     dw.Trigger = "ADMIN_RESOLVE"
)

// Triggers for the tender workflow
const (
	TriggerAcceptBid        dw.Trigger = "ACCEPT_BID"
	TriggerStartWork        dw.Trigger = "START_WORK"
	TriggerSubmitCompletion dw.Trigger = "SUBMIT_COMPLETION"
	TriggerApproveWork      dw.Trigger = "APPROVE_WORK"
	TriggerRejectWork       dw.Trigger = "REJECT_WORK"
)

// newIssueFlow configures the issue stage graph. Stages only ever move
// forward; reported and area_review are equivalent "awaiting area
// triage" positions and accept the same outgoing transition.
func newIssueFlow() dw.StateMachineBuilder {
	b := dw.NewBuilder(
		dw.State(models.StageReported),
		dw.State(models.StageAreaReview),
		dw.State(models.StageDepartmentAssigned),
		dw.State(models.StageContractorAssigned),
		dw.State(models.StageDepartmentReview),
		dw.State(models.StageResolved),
	)

	b.Configure(dw.State(models.StageReported)).
		Permit(TriggerAssignDepartment, dw.State(models.StageDepartmentAssigned)).
		Permit(TriggerAdminResolve, dw.State(models.StageResolved))

	b.Configure(dw.State(models.StageAreaReview)).
		Permit(TriggerAssignDepartment, dw.State(models.StageDepartmentAssigned)).
		Permit(TriggerAdminResolve, dw.State(models.StageResolved))

	b.Configure(dw.State(models.StageDepartmentAssigned)).
		Permit(TriggerCreateTender, dw.State(models.StageContractorAssigned)).
		Permit(TriggerResolveDirect, dw.State(models.StageResolved)).
		Permit(TriggerAdminResolve, dw.State(models.StageResolved))

	b.Configure(dw.State(models.StageContractorAssigned)).
		Permit(TriggerVerifyResolution, dw.State(models.StageResolved)).
		Permit(TriggerAdminResolve, dw.State(models.StageResolved))

	b.Configure(dw.State(models.StageDepartmentReview)).
		Permit(TriggerVerifyResolution, dw.State(models.StageResolved)).
		Permit(TriggerAdminResolve, dw.State(models.StageResolved))

	return b
}

// newTenderFlow configures the tender stage graph. The only backward
// edge is a rejected completion report returning the tender to
// work_in_progress for resubmission.
func newTenderFlow() dw.StateMachineBuilder {
	b := dw.NewBuilder(
		dw.State(models.TenderStageCreated),
		dw.State(models.TenderStageAwarded),
		dw.State(models.TenderStageWorkInProgress),
		dw.State(models.TenderStageWorkCompleted),
		dw.State(models.TenderStageVerified),
	)

	b.Configure(dw.State(models.TenderStageCreated)).
		Permit(TriggerAcceptBid, dw.State(models.TenderStageAwarded))

	b.Configure(dw.State(models.TenderStageAwarded)).
		Permit(TriggerStartWork, dw.State(models.TenderStageWorkInProgress))

	b.Configure(dw.State(models.TenderStageWorkInProgress)).
		Permit(TriggerSubmitCompletion, dw.State(models.TenderStageWorkCompleted))

	b.Configure(dw.State(models.TenderStageWorkCompleted)).
		Permit(TriggerApproveWork, dw.State(models.TenderStageVerified)).
		Permit(TriggerRejectWork, dw.State(models.TenderStageWorkInProgress))

	return b
}
