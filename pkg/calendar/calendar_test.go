package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2025, time.October))
	assert.Equal(t, 30, DaysInMonth(2025, time.November))
	assert.Equal(t, 28, DaysInMonth(2025, time.February))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(1900, time.February))
	assert.Equal(t, 29, DaysInMonth(2000, time.February))
}

func TestFirstWeekdayOfMonth(t *testing.T) {
	// 2025-10-01 is a Wednesday
	assert.Equal(t, 3, FirstWeekdayOfMonth(2025, time.October))
	// 2025-06-01 is a Sunday
	assert.Equal(t, 0, FirstWeekdayOfMonth(2025, time.June))
	// 2025-11-01 is a Saturday
	assert.Equal(t, 6, FirstWeekdayOfMonth(2025, time.November))
}

func TestIsDayInPast(t *testing.T) {
	now := time.Date(2025, time.October, 28, 0, 0, 1, 0, time.UTC)

	assert.True(t, IsDayInPast(2025, time.October, 27, now))
	assert.False(t, IsDayInPast(2025, time.October, 28, now))
	assert.False(t, IsDayInPast(2025, time.October, 29, now))
	assert.True(t, IsDayInPast(2024, time.December, 31, now))
}

func TestIsAppointmentPast(t *testing.T) {
	now := time.Date(2025, time.October, 28, 14, 30, 45, 0, time.UTC)
	today := DateOf(now)

	t.Run("earlier days are past at any time", func(t *testing.T) {
		for _, tod := range []TimeOfDay{{0, 0}, {9, 0}, {23, 59}} {
			for offset := 1; offset <= 400; offset += 37 {
				assert.True(t, IsAppointmentPast(today.AddDays(-offset), tod, now))
			}
		}
	})

	t.Run("later days are never past", func(t *testing.T) {
		for _, tod := range []TimeOfDay{{0, 0}, {9, 0}, {23, 59}} {
			for offset := 1; offset <= 400; offset += 37 {
				assert.False(t, IsAppointmentPast(today.AddDays(offset), tod, now))
			}
		}
	})

	t.Run("same day compares minutes", func(t *testing.T) {
		assert.True(t, IsAppointmentPast(today, TimeOfDay{14, 29}, now))
		assert.False(t, IsAppointmentPast(today, TimeOfDay{14, 30}, now))
		assert.False(t, IsAppointmentPast(today, TimeOfDay{14, 31}, now))
	})
}

func TestDateRoundTrip(t *testing.T) {
	start := NewDate(1999, time.January, 1)
	end := NewDate(2031, time.December, 31)

	for d := start; !d.After(end); d = d.AddDays(1) {
		display := d.Display()
		iso, err := DisplayToISO(display)
		require.NoError(t, err)
		assert.Equal(t, d.ISO(), iso)

		back, err := ISOToDisplay(iso)
		require.NoError(t, err)
		require.Equal(t, display, back)
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	for _, input := range []string{"", "2025-13-01", "2025-02-30", "28/10/2025", "garbage"} {
		_, err := ParseISO(input)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation), input)
	}
	for _, input := range []string{"", "31/11/2025", "2025-10-28"} {
		_, err := ParseDisplay(input)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation), input)
	}
	for _, input := range []string{"", "9:00", "24:00", "12:60", "noon"} {
		_, err := ParseTimeOfDay(input)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation), input)
	}
}

func TestAddDaysAcrossYear(t *testing.T) {
	d := NewDate(2025, time.October, 28)
	assert.Equal(t, NewDate(2025, time.December, 27), d.AddDays(60))
	assert.Equal(t, NewDate(2026, time.January, 26), d.AddDays(90))
	assert.Equal(t, 60, d.DaysUntil(d.AddDays(60)))
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan("09:05:00"))
	assert.Equal(t, "09:05", tod.String())

	require.NoError(t, tod.Scan([]byte("17:45")))
	assert.Equal(t, TimeOfDay{Hour: 17, Minute: 45}, tod)

	assert.Error(t, tod.Scan(42))
}

func TestDateJSON(t *testing.T) {
	payload := struct {
		Date Date      `json:"date"`
		Time TimeOfDay `json:"time"`
	}{Date: NewDate(2025, time.October, 27), Time: TimeOfDay{9, 0}}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-10-27","time":"09:00"}`, string(data))

	var decoded struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":null}`), &decoded))
	assert.True(t, decoded.Date.IsZero())
}

func TestMonth(t *testing.T) {
	oct := Month{Year: 2025, Month: time.October}

	assert.Equal(t, "outubro de 2025", oct.Label())
	assert.Equal(t, "março de 2026", oct.AddMonths(5).Label())
	assert.Equal(t, Month{Year: 2024, Month: time.December}, oct.AddMonths(-10))
	assert.True(t, oct.Contains(NewDate(2025, time.October, 31)))
	assert.False(t, oct.Contains(NewDate(2025, time.November, 1)))

	parsed, err := ParseMonth("2025-10")
	require.NoError(t, err)
	assert.Equal(t, oct, parsed)
	assert.Equal(t, "2025-10", parsed.String())
}

func TestFixedClock(t *testing.T) {
	clock := NewFixedClock(time.Date(2025, time.October, 28, 23, 59, 0, 0, time.UTC))
	clock.Advance(2 * time.Minute)
	assert.Equal(t, NewDate(2025, time.October, 29), Today(clock))
}
