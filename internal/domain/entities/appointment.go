package entities

import (
	"sort"
	"strings"
	"time"

	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// Appointment represents a scheduled donation slot at a facility
type Appointment struct {
	ID                 string             `json:"id" db:"id"`
	FacilityID         string             `json:"facility_id" db:"facility_id"`
	DonorID            *string            `json:"donor_id,omitempty" db:"donor_id"`
	PatientName        string             `json:"patient_name" db:"patient_name"`
	Date               calendar.Date      `json:"date" db:"date"`
	Time               calendar.TimeOfDay `json:"time" db:"time"`
	Status             AppointmentStatus  `json:"status" db:"status"`
	Notes              string             `json:"notes,omitempty" db:"notes"`
	EligibilityPending bool               `json:"eligibility_pending" db:"eligibility_pending"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// HasDonor reports whether the appointment references a donor record
func (a *Appointment) HasDonor() bool {
	return a.DonorID != nil && strings.TrimSpace(*a.DonorID) != ""
}

// IsPast reports whether the slot has started relative to now
func (a *Appointment) IsPast(now time.Time) bool {
	return calendar.IsAppointmentPast(a.Date, a.Time, now)
}

// BlocksSlot reports whether the appointment occupies its slot for marker and
// double-booking purposes
func (a *Appointment) BlocksSlot() bool {
	return a.Status != AppointmentStatusCancelled
}

// SortAppointments orders by time of day ascending, keeping the relative order of equal times.
func SortAppointments(list []*Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Time.Compare(list[j].Time) < 0
	})
}

// NewAppointmentInput is the payload of a manual or self-service booking
type NewAppointmentInput struct {
	PatientName string  `json:"patient_name"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	DonorID     *string `json:"donor_id,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	// SelfService bookings start as Pending instead of Confirmed
	SelfService bool `json:"self_service,omitempty"`
}

// Parse validates required fields and returns the parsed slot
func (in NewAppointmentInput) Parse() (calendar.Date, calendar.TimeOfDay, error) {
	if strings.TrimSpace(in.PatientName) == "" {
		return calendar.Date{}, calendar.TimeOfDay{}, apperrors.NewValidationError("patient_name is required")
	}
	if strings.TrimSpace(in.Date) == "" {
		return calendar.Date{}, calendar.TimeOfDay{}, apperrors.NewValidationError("date is required")
	}
	if strings.TrimSpace(in.Time) == "" {
		return calendar.Date{}, calendar.TimeOfDay{}, apperrors.NewValidationError("time is required")
	}
	date, err := calendar.ParseISO(in.Date)
	if err != nil {
		return calendar.Date{}, calendar.TimeOfDay{}, err
	}
	tod, err := calendar.ParseTimeOfDay(in.Time)
	if err != nil {
		return calendar.Date{}, calendar.TimeOfDay{}, err
	}
	return date, tod, nil
}

// InitialStatus is Pending for self-service bookings and Confirmed otherwise
func (in NewAppointmentInput) InitialStatus() AppointmentStatus {
	if in.SelfService {
		return AppointmentStatusPending
	}
	return AppointmentStatusConfirmed
}
