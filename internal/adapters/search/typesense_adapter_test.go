package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

func TestBuildDonorDocument(t *testing.T) {
	donor := &entities.Donor{
		ID:            "donor-1",
		FacilityID:    "fac-1",
		Name:          "Maria Souza",
		BloodType:     "O-",
		Status:        entities.DonorStatusActive,
		DonationCount: 2,
		CreatedAt:     time.Unix(1700000000, 0),
	}

	doc := buildDonorDocument(donor)

	assert.Equal(t, "donor-1", doc["id"])
	assert.Equal(t, "O-", doc["blood_type"])
	assert.Equal(t, "active", doc["status"])
	assert.Equal(t, int64(1700000000), doc["created_at"])
}

func TestBuildSearchParams(t *testing.T) {
	params := buildSearchParams("fac-1", "  souza ", 0)

	require.NotNil(t, params.Q)
	assert.Equal(t, "souza", *params.Q)
	assert.Equal(t, defaultSearchLimit, *params.PerPage)
	require.NotNil(t, params.FilterBy)
	assert.Equal(t, "facility_id:=`fac-1`", *params.FilterBy)

	params = buildSearchParams("", "", 5)
	assert.Equal(t, "*", *params.Q)
	assert.Nil(t, params.FilterBy)
}
