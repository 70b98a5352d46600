package entities

import (
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// Campaign is a time-boxed donation drive
type Campaign struct {
	ID               string         `json:"id" db:"id"`
	FacilityID       string         `json:"facility_id" db:"facility_id"`
	Name             string         `json:"name" db:"name"`
	Reason           string         `json:"reason" db:"reason"`
	StartDate        calendar.Date  `json:"start_date" db:"start_date"`
	EndDate          calendar.Date  `json:"end_date" db:"end_date"`
	Institution      string         `json:"institution" db:"institution"`
	Location         string         `json:"location" db:"location"`
	TargetBloodTypes pq.StringArray `json:"target_blood_types" db:"target_blood_types"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActiveOn reports whether day falls within [StartDate, EndDate]
func (c *Campaign) IsActiveOn(day calendar.Date) bool {
	return !day.Before(c.StartDate) && !day.After(c.EndDate)
}

// HasEnded reports whether the campaign ended before day
func (c *Campaign) HasEnded(day calendar.Date) bool {
	return day.After(c.EndDate)
}

// DurationDays is the inclusive length of the campaign
func (c *Campaign) DurationDays() int {
	return c.StartDate.DaysUntil(c.EndDate) + 1
}

// CampaignInput is the create/update payload for a campaign
type CampaignInput struct {
	Name             string   `json:"name" validate:"required,max=200"`
	Reason           string   `json:"reason" validate:"max=500"`
	StartDate        string   `json:"start_date" validate:"required"`
	EndDate          string   `json:"end_date" validate:"required"`
	Institution      string   `json:"institution" validate:"max=200"`
	Location         string   `json:"location" validate:"max=300"`
	TargetBloodTypes []string `json:"target_blood_types"`
}

// Apply validates dates and blood types and copies the input onto c
func (in CampaignInput) Apply(c *Campaign) error {
	start, err := calendar.ParseISO(in.StartDate)
	if err != nil {
		return err
	}
	end, err := calendar.ParseISO(in.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return apperrors.NewValidationError("end_date must not be before start_date")
	}

	types := make(pq.StringArray, 0, len(in.TargetBloodTypes))
	seen := make(map[BloodType]bool)
	for _, raw := range in.TargetBloodTypes {
		bt, err := ParseBloodType(raw)
		if err != nil {
			return err
		}
		if !seen[bt] {
			seen[bt] = true
			types = append(types, string(bt))
		}
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Reason = strings.TrimSpace(in.Reason)
	c.StartDate = start
	c.EndDate = end
	c.Institution = strings.TrimSpace(in.Institution)
	c.Location = strings.TrimSpace(in.Location)
	c.TargetBloodTypes = types
	return nil
}
