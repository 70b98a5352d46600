package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// Sex drives the donation cooldown length
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
	SexOther  Sex = "other"
)

// ParseSex accepts english codes and the pt-BR labels used on the donor form
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f", "feminino":
		return SexFemale, nil
	case "male", "m", "masculino":
		return SexMale, nil
	case "other", "outro":
		return SexOther, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown sex %q", s))
}

// BloodType is an ABO/Rh blood group
type BloodType string

var bloodTypes = map[BloodType]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {}, "AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

// ParseBloodType normalizes and validates a blood group
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.ReplaceAll(s, " ", "")))
	if _, ok := bloodTypes[bt]; !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown blood type %q", s))
	}
	return bt, nil
}

// DonorStatus is whether the donor is still in the active registry
type DonorStatus string

const (
	DonorStatusActive   DonorStatus = "active"
	DonorStatusInactive DonorStatus = "inactive"
)

// Eligibility status values written on the donor record
const (
	EligibilityStatusEligible              = "eligible"
	EligibilityStatusTemporarilyIneligible = "temporarily_ineligible"
)

// Donor is a registered blood donor
type Donor struct {
	ID                string        `json:"id" db:"id"`
	FacilityID        string        `json:"facility_id" db:"facility_id"`
	Name              string        `json:"name" db:"name"`
	Email             string        `json:"email" db:"email"`
	Phone             string        `json:"phone" db:"phone"`
	BloodType         BloodType     `json:"blood_type" db:"blood_type"`
	Sex               Sex           `json:"sex" db:"sex"`
	BirthDate         calendar.Date `json:"birth_date" db:"birth_date"`
	Status            DonorStatus   `json:"status" db:"status"`
	DonationCount     int           `json:"donation_count" db:"donation_count"`
	LivesSaved        int           `json:"lives_saved" db:"lives_saved"`
	LastDonationDate  calendar.Date `json:"last_donation_date" db:"last_donation_date"`
	NextEligibleDate  calendar.Date `json:"next_eligible_date" db:"next_eligible_date"`
	EligibilityStatus string        `json:"eligibility_status" db:"eligibility_status"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// CanDonateOn reports whether the cooldown after the last donation has elapsed by day
func (d *Donor) CanDonateOn(day calendar.Date) bool {
	if d.Status == DonorStatusInactive {
		return false
	}
	return d.NextEligibleDate.IsZero() || !day.Before(d.NextEligibleDate)
}

// DonorInput is the create/update payload for a donor
type DonorInput struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	BloodType string `json:"blood_type" validate:"required"`
	Sex       string `json:"sex" validate:"required"`
	BirthDate string `json:"birth_date" validate:"omitempty"`
}

// Apply copies validated input fields onto d
func (in DonorInput) Apply(d *Donor) error {
	bt, err := ParseBloodType(in.BloodType)
	if err != nil {
		return err
	}
	sex, err := ParseSex(in.Sex)
	if err != nil {
		return err
	}
	var birth calendar.Date
	if in.BirthDate != "" {
		if birth, err = calendar.ParseISO(in.BirthDate); err != nil {
			return err
		}
	}
	d.Name = strings.TrimSpace(in.Name)
	d.Email = strings.ToLower(strings.TrimSpace(in.Email))
	d.Phone = strings.TrimSpace(in.Phone)
	d.BloodType = bt
	d.Sex = sex
	d.BirthDate = birth
	return nil
}
