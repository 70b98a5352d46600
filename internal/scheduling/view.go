package scheduling

import (
	"time"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

// View is the rendered state of the scheduling screen
type View struct {
	Month           string        `json:"month"`
	MonthLabel      string        `json:"month_label"`
	LeadingBlanks   int           `json:"leading_blanks"`
	Days            []DayCell     `json:"days"`
	SelectedDate    calendar.Date `json:"selected_date"`
	SelectedDisplay string        `json:"selected_display"`
	Appointments    []Row         `json:"appointments"`
	Loaded          bool          `json:"loaded"`
	Now             time.Time     `json:"now"`
}

// DayCell is one day of the month grid
type DayCell struct {
	Day             int           `json:"day"`
	Date            calendar.Date `json:"date"`
	HasAppointments bool          `json:"has_appointments"`
	IsPast          bool          `json:"is_past"`
	IsToday         bool          `json:"is_today"`
	IsSelected      bool          `json:"is_selected"`
}

// Row is one appointment of the selected day
type Row struct {
	Appointment *entities.Appointment     `json:"appointment"`
	Status      entities.StatusDescriptor `json:"status"`
	IsPast      bool                      `json:"is_past"`
	Actions     []ActionOption            `json:"actions"`
}

// ActionOption is a transition currently offered for a row
type ActionOption struct {
	Action entities.AppointmentAction `json:"action"`
	Label  string                     `json:"label"`
}

// BuildView derives the month grid and the selected-day list from a snapshot.
// Day markers only count appointments that still hold their slot; the list
// shows every status.
func BuildView(month calendar.Month, selected calendar.Date, now time.Time, appointments []*entities.Appointment) View {
	today := calendar.DateOf(now)

	marked := make(map[calendar.Date]bool)
	for _, apt := range appointments {
		if apt.BlocksSlot() && month.Contains(apt.Date) {
			marked[apt.Date] = true
		}
	}

	view := View{
		Month:           month.String(),
		MonthLabel:      month.Label(),
		LeadingBlanks:   month.FirstWeekday(),
		Days:            make([]DayCell, 0, month.Days()),
		SelectedDate:    selected,
		SelectedDisplay: selected.Display(),
		Appointments:    []Row{},
		Now:             now,
	}

	for day := 1; day <= month.Days(); day++ {
		date := month.DateAt(day)
		view.Days = append(view.Days, DayCell{
			Day:             day,
			Date:            date,
			HasAppointments: marked[date],
			IsPast:          date.Before(today),
			IsToday:         date == today,
			IsSelected:      date == selected,
		})
	}

	for _, apt := range appointments {
		if apt.Date != selected {
			continue
		}
		past := apt.IsPast(now)
		row := Row{
			Appointment: apt,
			Status:      apt.Status.Display(),
			IsPast:      past,
			Actions:     []ActionOption{},
		}
		for _, action := range entities.AvailableActions(apt.Status, past) {
			row.Actions = append(row.Actions, ActionOption{Action: action, Label: action.Label()})
		}
		view.Appointments = append(view.Appointments, row)
	}

	return view
}
