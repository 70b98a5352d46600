package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

const activitiesTable = "activities"

// ActivityAdapter implements the ActivityRepository interface
type ActivityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewActivityAdapter creates a new activity adapter
func NewActivityAdapter(client *postgres.Client) repositories.ActivityRepository {
	return &ActivityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append writes one log entry
func (a *ActivityAdapter) Append(ctx context.Context, activity *entities.Activity) error {
	if activity.OccurredAt.IsZero() {
		activity.OccurredAt = time.Now()
	}

	query, args, err := a.db.Insert(activitiesTable).Rows(goqu.Record{
		"id":          activity.ID,
		"facility_id": activity.FacilityID,
		"type":        string(activity.Type),
		"description": activity.Description,
		"subject_id":  activity.SubjectID,
		"actor_id":    activity.ActorID,
		"occurred_at": activity.OccurredAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return wrapWriteError("failed to append activity", err)
	}
	return nil
}

// List returns entries newest first
func (a *ActivityAdapter) List(ctx context.Context, filter repositories.ActivityFilter) ([]*entities.Activity, error) {
	ds := a.db.Select("id", "facility_id", "type", "description", "subject_id", "actor_id", "occurred_at").
		From(activitiesTable)

	if filter.FacilityID != "" {
		ds = ds.Where(goqu.Ex{"facility_id": filter.FacilityID})
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		ds = ds.Where(goqu.C("type").In(types))
	}

	ds = ds.Order(goqu.I("occurred_at").Desc(), goqu.I("id").Desc())

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	ds = ds.Limit(uint(limit))
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	activities := []*entities.Activity{}
	if err := a.client.X().SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, wrapReadError("failed to list activities", err)
	}
	return activities, nil
}
