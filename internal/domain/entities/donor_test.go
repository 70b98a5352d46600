package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

func TestComputeNextEligibleDate(t *testing.T) {
	today := calendar.NewDate(2025, time.October, 28)

	assert.Equal(t, 90, today.DaysUntil(ComputeNextEligibleDate(today, SexFemale)))
	assert.Equal(t, 60, today.DaysUntil(ComputeNextEligibleDate(today, SexMale)))
	assert.Equal(t, 60, today.DaysUntil(ComputeNextEligibleDate(today, SexOther)))
	assert.Equal(t, calendar.NewDate(2025, time.December, 27), ComputeNextEligibleDate(today, SexMale))
}

func TestNewDonationRecord(t *testing.T) {
	donor := &Donor{ID: "donor-1", Sex: SexFemale}
	rec := NewDonationRecord(donor, "apt-1", calendar.NewDate(2025, time.October, 28))

	assert.Equal(t, "donor-1", rec.DonorID)
	assert.Equal(t, "apt-1", rec.AppointmentID)
	assert.Equal(t, calendar.NewDate(2026, time.January, 26), rec.NextEligibleDate)
}

func TestDonor_CanDonateOn(t *testing.T) {
	d := &Donor{Status: DonorStatusActive, NextEligibleDate: calendar.NewDate(2025, time.December, 27)}

	assert.False(t, d.CanDonateOn(calendar.NewDate(2025, time.December, 26)))
	assert.True(t, d.CanDonateOn(calendar.NewDate(2025, time.December, 27)))

	d.Status = DonorStatusInactive
	assert.False(t, d.CanDonateOn(calendar.NewDate(2026, time.January, 1)))
}

func TestDonorInput_Apply(t *testing.T) {
	var d Donor
	err := DonorInput{Name: " Maria Souza ", Email: "Maria@Example.com", BloodType: "a+", Sex: "Feminino", BirthDate: "1990-05-12"}.Apply(&d)
	require.NoError(t, err)

	assert.Equal(t, "Maria Souza", d.Name)
	assert.Equal(t, "maria@example.com", d.Email)
	assert.Equal(t, BloodType("A+"), d.BloodType)
	assert.Equal(t, SexFemale, d.Sex)
	assert.Equal(t, "1990-05-12", d.BirthDate.ISO())

	assert.Error(t, DonorInput{Name: "X", BloodType: "C+", Sex: "male"}.Apply(&d))
	assert.Error(t, DonorInput{Name: "X", BloodType: "O-", Sex: "unknown"}.Apply(&d))
}

func TestValidCNPJ(t *testing.T) {
	assert.True(t, ValidCNPJ("11222333000181"))
	assert.False(t, ValidCNPJ("11222333000182"))
	assert.False(t, ValidCNPJ("11111111111111"))
	assert.False(t, ValidCNPJ("1122233300018"))
}

func TestFacilityInput_Apply(t *testing.T) {
	var f Facility
	err := FacilityInput{
		Name:  "Hemocentro Central",
		Email: "contato@hemocentro.org",
		CNPJ:  "11.222.333/0001-81",
		Address: Address{
			Street: "Rua das Flores, 100", District: "Centro", CEP: "01001-000",
			City: "São Paulo", State: "sp",
		},
	}.Apply(&f)
	require.NoError(t, err)

	assert.Equal(t, "11222333000181", f.CNPJ)
	assert.Equal(t, "11.222.333/0001-81", f.FormattedCNPJ())
	assert.Equal(t, "01001000", f.Address.CEP)
	assert.Equal(t, "SP", f.Address.State)
	assert.Equal(t, "Brasil", f.Address.Country)

	assert.Error(t, FacilityInput{Name: "x", CNPJ: "123"}.Apply(&f))
}

func TestCampaignInput_Apply(t *testing.T) {
	var c Campaign
	err := CampaignInput{
		Name: "Urgência O-", StartDate: "2025-10-20", EndDate: "2025-10-31",
		TargetBloodTypes: []string{"o-", "O-", "B-"},
	}.Apply(&c)
	require.NoError(t, err)

	assert.Equal(t, []string{"O-", "B-"}, []string(c.TargetBloodTypes))
	assert.Equal(t, 12, c.DurationDays())
	assert.True(t, c.IsActiveOn(calendar.NewDate(2025, time.October, 31)))
	assert.False(t, c.IsActiveOn(calendar.NewDate(2025, time.November, 1)))
	assert.True(t, c.HasEnded(calendar.NewDate(2025, time.November, 1)))

	assert.Error(t, CampaignInput{Name: "x", StartDate: "2025-10-31", EndDate: "2025-10-20"}.Apply(&c))
}

func TestActivityDescriptorsAreTotal(t *testing.T) {
	for _, at := range allActivityTypes {
		d, err := at.Describe()
		require.NoError(t, err, at)
		assert.NotEmpty(t, d.Title)
		assert.NotEmpty(t, d.Icon)
		assert.NotEmpty(t, d.Section)
	}

	_, err := ActivityType("Agendamento Remarcado").Describe()
	assert.Error(t, err)

	assert.Contains(t, ActivityTypesIn(SectionCampaigns), ActivityAlertSent)
	assert.Equal(t, ActivityAppointmentConfirmed, ActivityForTransition(AppointmentStatusConfirmed, AppointmentStatusPending))
	assert.Equal(t, ActivityAppointmentReactivated, ActivityForTransition(AppointmentStatusConfirmed, AppointmentStatusNoShow))
}
