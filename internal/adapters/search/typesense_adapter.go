package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	tsclient "github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/typesense"
)

const defaultSearchLimit = 20

// TypesenseAdapter implements donor search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements DonorSearchRepository
var _ repositories.DonorSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a donor document
func (a *TypesenseAdapter) Index(ctx context.Context, donor *entities.Donor) error {
	_, err := a.client.Client().Collection(tsclient.DonorsCollection).Documents().Upsert(ctx, buildDonorDocument(donor))
	if err != nil {
		return fmt.Errorf("failed to index donor: %w", err)
	}
	return nil
}

// Delete removes a donor from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.DonorsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete donor from index: %w", err)
	}
	return nil
}

// Search returns donor ids ranked by relevance
func (a *TypesenseAdapter) Search(ctx context.Context, facilityID, query string, limit int) ([]string, error) {
	result, err := a.client.Client().Collection(tsclient.DonorsCollection).Documents().
		Search(ctx, buildSearchParams(facilityID, query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search donors: %w", err)
	}

	ids := []string{}
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildDonorDocument(donor *entities.Donor) map[string]interface{} {
	return map[string]interface{}{
		"id":             donor.ID,
		"facility_id":    donor.FacilityID,
		"name":           donor.Name,
		"email":          donor.Email,
		"phone":          donor.Phone,
		"blood_type":     string(donor.BloodType),
		"status":         string(donor.Status),
		"donation_count": donor.DonationCount,
		"created_at":     donor.CreatedAt.Unix(),
	}
}

func buildSearchParams(facilityID, query string, limit int) *api.SearchCollectionParams {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,email,phone"),
		PerPage: pointer.Int(limit),
		Page:    pointer.Int(1),
	}
	if facilityID != "" {
		params.FilterBy = pointer.String(fmt.Sprintf("facility_id:=`%s`", facilityID))
	}
	return params
}
