package entities

import "time"

// DashboardSummary backs the home screen cards
type DashboardSummary struct {
	TotalDonors         int          `json:"total_donors"`
	ActiveDonors        int          `json:"active_donors"`
	ActiveCampaigns     int          `json:"active_campaigns"`
	PendingAppointments int          `json:"pending_appointments"`
	UrgentBloodTypes    []string     `json:"urgent_blood_types"`
	NextAppointment     *Appointment `json:"next_appointment,omitempty"`
	RecentActivities    []*Activity  `json:"recent_activities"`
	GeneratedAt         time.Time    `json:"generated_at"`
}
