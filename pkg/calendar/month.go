package calendar

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

var monthNamesPtBR = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Month identifies a displayed calendar month
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d
func MonthOf(d Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// ParseMonth parses a YYYY-MM string
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, apperrors.NewValidationError(fmt.Sprintf("invalid month %q, expected YYYY-MM", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// AddMonths shifts m by n months (n may be negative)
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Days() int {
	return DaysInMonth(m.Year, m.Month)
}

func (m Month) FirstWeekday() int {
	return FirstWeekdayOfMonth(m.Year, m.Month)
}

// DateAt returns day of m
func (m Month) DateAt(day int) Date {
	return Date{Year: m.Year, Month: m.Month, Day: day}
}

// Contains reports whether d falls inside m
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// Label renders the month the way the dashboard header shows it, e.g. "outubro de 2025"
func (m Month) Label() string {
	if m.Month < time.January || m.Month > time.December {
		return ""
	}
	return fmt.Sprintf("%s de %d", monthNamesPtBR[m.Month-1], m.Year)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
