package repositories

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

// CampaignRepository defines the interface for campaign data operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *entities.Campaign) error
	GetByID(ctx context.Context, id string) (*entities.Campaign, error)
	Update(ctx context.Context, campaign *entities.Campaign) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter CampaignFilter) ([]*entities.Campaign, error)
}

// CampaignFilter defines filters for listing campaigns
type CampaignFilter struct {
	FacilityID string
	// ActiveOn keeps campaigns whose [start, end] contains the day
	ActiveOn *calendar.Date
	Limit    int
	Offset   int
}
