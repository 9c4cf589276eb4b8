// Package workflow is the authoritative owner of the issue and tender
// lifecycles. Every transition is role-gated, validated against the
// stage graph, and applied as one transaction; no other code path may
// write the status or workflow_stage fields.
package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	dw "github.com/opencivic/civicflow/internal/domain/workflow"
	"github.com/opencivic/civicflow/internal/gamification"
	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/realtime"
	"github.com/opencivic/civicflow/internal/repository"
	"github.com/opencivic/civicflow/pkg/database"
)

// Engine orchestrates the issue/tender workflow
type Engine struct {
	db          *database.DB
	issues      *repository.IssueRepository
	assignments *repository.AssignmentRepository
	tenders     *repository.TenderRepository
	bids        *repository.BidRepository
	progress    *repository.WorkProgressRepository
	users       *repository.UserRepository
	points      gamification.PointAwarder
	publisher   realtime.Publisher
	logger      *zap.Logger

	issueFlow  dw.StateMachineBuilder
	tenderFlow dw.StateMachineBuilder
}

// NewEngine creates a new workflow engine
func NewEngine(
	db *database.DB,
	issues *repository.IssueRepository,
	assignments *repository.AssignmentRepository,
	tenders *repository.TenderRepository,
	bids *repository.BidRepository,
	progress *repository.WorkProgressRepository,
	users *repository.UserRepository,
	points gamification.PointAwarder,
	publisher realtime.Publisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:          db,
		issues:      issues,
		assignments: assignments,
		tenders:     tenders,
		bids:        bids,
		progress:    progress,
		users:       users,
		points:      points,
		publisher:   publisher,
		logger:      logger,
		issueFlow:   newIssueFlow(),
		tenderFlow:  newTenderFlow(),
	}
}

// nextIssueStage validates the trigger against the issue stage graph
// and returns the stage it leads to.
func (e *Engine) nextIssueStage(ctx context.Context, current models.IssueStage, trigger dw.Trigger) (models.IssueStage, error) {
	if !current.IsValid() {
		return "", invalidTransition("workflow_stage", "issue has unknown workflow stage %q", current)
	}
	machine := e.issueFlow.Build(dw.State(current))
	next, err := machine.Peek(ctx, trigger)
	if err != nil {
		return "", invalidTransition("workflow_stage", "action %s is not legal from issue stage %s", trigger, current)
	}
	return models.IssueStage(next), nil
}

// nextTenderStage validates the trigger against the tender stage graph
// and returns the stage it leads to.
func (e *Engine) nextTenderStage(ctx context.Context, current models.TenderStage, trigger dw.Trigger) (models.TenderStage, error) {
	if !current.IsValid() {
		return "", invalidTransition("workflow_stage", "tender has unknown workflow stage %q", current)
	}
	machine := e.tenderFlow.Build(dw.State(current))
	next, err := machine.Peek(ctx, trigger)
	if err != nil {
		return "", invalidTransition("workflow_stage", "action %s is not legal from tender stage %s", trigger, current)
	}
	return models.TenderStage(next), nil
}

// publish sends a change event. Best effort: failures are logged and
// swallowed, never surfaced from a transition.
func (e *Engine) publish(ctx context.Context, entityType, entityID string, kind realtime.ChangeKind) {
	if e.publisher == nil {
		return
	}
	event := realtime.Event{EntityType: entityType, EntityID: entityID, ChangeKind: kind}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish change event",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// awardPoints applies a gamification award. Best effort like publish.
func (e *Engine) awardPoints(ctx context.Context, userID string, points int64) {
	if e.points == nil || points <= 0 {
		return
	}
	if err := e.points.Award(ctx, userID, points); err != nil {
		e.logger.Warn("Failed to award points",
			zap.String("user_id", userID),
			zap.Int64("points", points),
			zap.Error(err))
	}
}

// mapRepoErr translates repository errors into workflow errors. The
// precondition string names what the caller raced or got wrong.
func mapRepoErr(err error, precondition, entity string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("%s not found", entity)
	case errors.Is(err, repository.ErrVersionConflict):
		return conflict(precondition, "%s was already updated, please refresh", entity)
	case errors.Is(err, repository.ErrDuplicate):
		return conflict(precondition, "%s already exists", entity)
	default:
		return dependency(err, "persistence failed for %s", entity)
	}
}
