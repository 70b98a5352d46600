// Package calendar holds the date arithmetic behind the scheduling view:
// month grids, past/future predicates and the ISO/display date codecs.
package calendar

import "time"

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOfMonth returns the weekday of the 1st, 0 = Sunday.
func FirstWeekdayOfMonth(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// IsDayInPast reports whether the given day is strictly before now's calendar day.
func IsDayInPast(year int, month time.Month, day int, now time.Time) bool {
	return NewDate(year, month, day).Before(DateOf(now))
}

// IsAppointmentPast reports whether an appointment at date+tod has started relative to now.
// On the same day the comparison is at minute precision: an appointment in the
// current minute is not yet past.
func IsAppointmentPast(date Date, tod TimeOfDay, now time.Time) bool {
	today := DateOf(now)
	switch date.Compare(today) {
	case -1:
		return true
	case 1:
		return false
	default:
		return tod.Compare(TimeOf(now)) < 0
	}
}

// ISOToDisplay converts YYYY-MM-DD to DD/MM/YYYY
func ISOToDisplay(iso string) (string, error) {
	d, err := ParseISO(iso)
	if err != nil {
		return "", err
	}
	return d.Display(), nil
}

// DisplayToISO converts DD/MM/YYYY to YYYY-MM-DD
func DisplayToISO(display string) (string, error) {
	d, err := ParseDisplay(display)
	if err != nil {
		return "", err
	}
	return d.ISO(), nil
}
