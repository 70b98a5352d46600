package entities

import "github.com/hemoglovida/dashboard/backend/pkg/calendar"

const (
	// CooldownDaysFemale is the minimum interval between donations for female donors
	CooldownDaysFemale = 90
	// CooldownDaysDefault applies to every other donor
	CooldownDaysDefault = 60
	// LivesPerDonation is how many lives one whole-blood donation is credited with
	LivesPerDonation = 4
)

// ComputeNextEligibleDate returns the first day the donor may donate again
func ComputeNextEligibleDate(today calendar.Date, sex Sex) calendar.Date {
	if sex == SexFemale {
		return today.AddDays(CooldownDaysFemale)
	}
	return today.AddDays(CooldownDaysDefault)
}

// DonationRecord is the donor-side effect of a completed donation.
// AppointmentID, when set, guards the update with the appointment's
// eligibility_pending marker so it is applied at most once.
type DonationRecord struct {
	DonorID          string
	AppointmentID    string
	DonationDate     calendar.Date
	NextEligibleDate calendar.Date
}

// NewDonationRecord computes the record for donor donating on today
func NewDonationRecord(donor *Donor, appointmentID string, today calendar.Date) DonationRecord {
	return DonationRecord{
		DonorID:          donor.ID,
		AppointmentID:    appointmentID,
		DonationDate:     today,
		NextEligibleDate: ComputeNextEligibleDate(today, donor.Sex),
	}
}
