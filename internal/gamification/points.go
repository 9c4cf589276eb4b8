// Package gamification awards civic-participation points to reporters.
// Awards are additive and best effort: a failed award never rolls back
// the workflow transition that triggered it.
package gamification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/repository"
)

// Point awards per issue priority, applied once on issue creation.
const (
	PointsUrgent = 20
	PointsHigh   = 15
	PointsMedium = 10
	PointsLow    = 5
)

// PointsForPriority returns the award for reporting an issue of the
// given priority.
func PointsForPriority(priority models.IssuePriority) int64 {
	switch priority {
	case models.PriorityUrgent:
		return PointsUrgent
	case models.PriorityHigh:
		return PointsHigh
	case models.PriorityMedium:
		return PointsMedium
	case models.PriorityLow:
		return PointsLow
	default:
		return 0
	}
}

// PointAwarder adds points to a user's running total
type PointAwarder interface {
	Award(ctx context.Context, userID string, points int64) error
}

// Service awards points against the user store
type Service struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

// NewService creates a point award service
func NewService(users *repository.UserRepository, logger *zap.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// Award adds points to the user's total
func (s *Service) Award(ctx context.Context, userID string, points int64) error {
	if points <= 0 {
		return nil
	}
	if err := s.users.AddPoints(ctx, nil, userID, points); err != nil {
		return fmt.Errorf("failed to award points: %w", err)
	}
	s.logger.Debug("Awarded points", zap.String("user_id", userID), zap.Int64("points", points))
	return nil
}
