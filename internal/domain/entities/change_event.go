package entities

import (
	"time"

	"github.com/google/uuid"
)

// Collection names a live collection that emits change events
type Collection string

const (
	CollectionAppointments Collection = "appointments"
	CollectionDonors       Collection = "donors"
	CollectionCampaigns    Collection = "campaigns"
	CollectionFacility     Collection = "facility"
	CollectionAuth         Collection = "auth"
)

// ChangeKind represents the type of change
type ChangeKind string

const (
	ChangeKindCreated ChangeKind = "created"
	ChangeKindUpdated ChangeKind = "updated"
	ChangeKindDeleted ChangeKind = "deleted"

	ChangeKindSignedIn  ChangeKind = "signed_in"
	ChangeKindSignedOut ChangeKind = "signed_out"
)

// ChangeEvent notifies subscribers that a document of a collection changed.
// Subscribers re-read the collection; the event carries no snapshot.
type ChangeEvent struct {
	ID            string                 `json:"id"`
	Collection    Collection             `json:"collection"`
	Kind          ChangeKind             `json:"kind"`
	DocumentID    string                 `json:"document_id"`
	FacilityID    string                 `json:"facility_id"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedFields map[string]interface{} `json:"changed_fields,omitempty"`
}

// NewChangeEvent creates a new change event
func NewChangeEvent(collection Collection, kind ChangeKind, facilityID, documentID string, changedFields map[string]interface{}) *ChangeEvent {
	return &ChangeEvent{
		ID:            uuid.NewString(),
		Collection:    collection,
		Kind:          kind,
		DocumentID:    documentID,
		FacilityID:    facilityID,
		Timestamp:     time.Now(),
		ChangedFields: changedFields,
	}
}
