package gamification

import (
	"testing"

	"github.com/opencivic/civicflow/internal/models"
)

func TestPointsForPriority(t *testing.T) {
	tests := []struct {
		priority models.IssuePriority
		want     int64
	}{
		{models.PriorityUrgent, 20},
		{models.PriorityHigh, 15},
		{models.PriorityMedium, 10},
		{models.PriorityLow, 5},
		{models.IssuePriority("unknown"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := PointsForPriority(tt.priority); got != tt.want {
				t.Errorf("PointsForPriority(%s) = %d, want %d", tt.priority, got, tt.want)
			}
		})
	}
}
