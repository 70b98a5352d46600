package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

const campaignsTable = "campaigns"

var campaignColumns = []interface{}{
	"id", "facility_id", "name", "reason", "start_date", "end_date",
	"institution", "location", "target_blood_types", "created_at", "updated_at",
}

// CampaignAdapter implements the CampaignRepository interface
type CampaignAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCampaignAdapter creates a new campaign adapter
func NewCampaignAdapter(client *postgres.Client) repositories.CampaignRepository {
	return &CampaignAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new campaign
func (a *CampaignAdapter) Create(ctx context.Context, campaign *entities.Campaign) error {
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	query, args, err := a.db.Insert(campaignsTable).Rows(goqu.Record{
		"id":                 campaign.ID,
		"facility_id":        campaign.FacilityID,
		"name":               campaign.Name,
		"reason":             campaign.Reason,
		"start_date":         campaign.StartDate,
		"end_date":           campaign.EndDate,
		"institution":        campaign.Institution,
		"location":           campaign.Location,
		"target_blood_types": campaign.TargetBloodTypes,
		"created_at":         campaign.CreatedAt,
		"updated_at":         campaign.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return wrapWriteError("failed to create campaign", err)
	}
	return nil
}

// GetByID retrieves a campaign by ID
func (a *CampaignAdapter) GetByID(ctx context.Context, id string) (*entities.Campaign, error) {
	query, args, err := a.db.Select(campaignColumns...).
		From(campaignsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	campaign := &entities.Campaign{}
	err = a.client.X().GetContext(ctx, campaign, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("campaign with id %s not found", id))
	}
	if err != nil {
		return nil, wrapReadError("failed to get campaign", err)
	}
	return campaign, nil
}

// Update replaces the editable fields of a campaign
func (a *CampaignAdapter) Update(ctx context.Context, campaign *entities.Campaign) error {
	campaign.UpdatedAt = time.Now()

	query, args, err := a.db.Update(campaignsTable).
		Set(goqu.Record{
			"name":               campaign.Name,
			"reason":             campaign.Reason,
			"start_date":         campaign.StartDate,
			"end_date":           campaign.EndDate,
			"institution":        campaign.Institution,
			"location":           campaign.Location,
			"target_blood_types": campaign.TargetBloodTypes,
			"updated_at":         campaign.UpdatedAt,
		}).
		Where(goqu.Ex{"id": campaign.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, campaign.ID, "failed to update campaign", query, args)
}

// Delete removes a campaign
func (a *CampaignAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(campaignsTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	return a.execOne(ctx, id, "failed to delete campaign", query, args)
}

// List retrieves campaigns, most recent start first
func (a *CampaignAdapter) List(ctx context.Context, filter repositories.CampaignFilter) ([]*entities.Campaign, error) {
	ds := a.db.Select(campaignColumns...).From(campaignsTable)

	if filter.FacilityID != "" {
		ds = ds.Where(goqu.Ex{"facility_id": filter.FacilityID})
	}
	if filter.ActiveOn != nil {
		ds = ds.Where(
			goqu.C("start_date").Lte(*filter.ActiveOn),
			goqu.C("end_date").Gte(*filter.ActiveOn),
		)
	}

	ds = ds.Order(goqu.I("start_date").Desc(), goqu.I("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	campaigns := []*entities.Campaign{}
	if err := a.client.X().SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, wrapReadError("failed to list campaigns", err)
	}
	return campaigns, nil
}

func (a *CampaignAdapter) execOne(ctx context.Context, id, message, query string, args []interface{}) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteError(message, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("campaign with id %s not found", id))
	}
	return nil
}
