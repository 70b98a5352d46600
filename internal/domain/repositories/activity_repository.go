package repositories

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// ActivityRepository is the append-only activity log
type ActivityRepository interface {
	Append(ctx context.Context, activity *entities.Activity) error
	List(ctx context.Context, filter ActivityFilter) ([]*entities.Activity, error)
}

// ActivityFilter selects log entries, newest first
type ActivityFilter struct {
	FacilityID string
	Types      []entities.ActivityType
	Limit      int
	Offset     int
}
