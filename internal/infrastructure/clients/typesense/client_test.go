package typesense

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDonorSchema(t *testing.T) {
	schema := DonorSchema()

	assert.Equal(t, DonorsCollection, schema.Name)
	assert.Equal(t, "created_at", *schema.DefaultSortingField)

	facets := map[string]bool{}
	for _, f := range schema.Fields {
		if f.Facet != nil && *f.Facet {
			facets[f.Name] = true
		}
	}
	assert.True(t, facets["facility_id"])
	assert.True(t, facets["blood_type"])
	assert.True(t, facets["status"])
}
