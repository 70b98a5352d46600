package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// ActivityType is the closed set of entries in the activity log
type ActivityType string

const (
	ActivityDonorCreated           ActivityType = "donor_created"
	ActivityDonorUpdated           ActivityType = "donor_updated"
	ActivityDonorDeactivated       ActivityType = "donor_deactivated"
	ActivityCampaignCreated        ActivityType = "campaign_created"
	ActivityCampaignUpdated        ActivityType = "campaign_updated"
	ActivityCampaignDeleted        ActivityType = "campaign_deleted"
	ActivityAlertSent              ActivityType = "alert_sent"
	ActivityAppointmentCreated     ActivityType = "appointment_created"
	ActivityAppointmentConfirmed   ActivityType = "appointment_confirmed"
	ActivityAppointmentCancelled   ActivityType = "appointment_cancelled"
	ActivityAppointmentNoShow      ActivityType = "appointment_no_show"
	ActivityAppointmentReactivated ActivityType = "appointment_reactivated"
	ActivityDonationCompleted      ActivityType = "donation_completed"
)

// ActivitySection groups activity types on the activity screen
type ActivitySection string

const (
	SectionDonors       ActivitySection = "donors"
	SectionCampaigns    ActivitySection = "campaigns"
	SectionAppointments ActivitySection = "appointments"
)

// ParseActivitySection accepts english and pt-BR section keys
func ParseActivitySection(s string) (ActivitySection, error) {
	switch s {
	case "donors", "doadores":
		return SectionDonors, nil
	case "campaigns", "campanhas":
		return SectionCampaigns, nil
	case "appointments", "agendamentos":
		return SectionAppointments, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown activity section %q", s))
}

// ActivityDescriptor is the icon, color and title rendered for an activity
type ActivityDescriptor struct {
	Title   string          `json:"title"`
	Icon    string          `json:"icon"`
	Color   string          `json:"color"`
	Section ActivitySection `json:"section"`
}

// Describe maps every activity type to its descriptor; unknown types are an error
func (t ActivityType) Describe() (ActivityDescriptor, error) {
	switch t {
	case ActivityDonorCreated:
		return ActivityDescriptor{"Novo Doador", "users", "blue", SectionDonors}, nil
	case ActivityDonorUpdated:
		return ActivityDescriptor{"Doador Atualizado", "edit", "yellow", SectionDonors}, nil
	case ActivityDonorDeactivated:
		return ActivityDescriptor{"Doador Inativado", "trash", "red", SectionDonors}, nil
	case ActivityCampaignCreated:
		return ActivityDescriptor{"Campanha Criada", "send", "green", SectionCampaigns}, nil
	case ActivityCampaignUpdated:
		return ActivityDescriptor{"Campanha Atualizada", "edit", "yellow", SectionCampaigns}, nil
	case ActivityCampaignDeleted:
		return ActivityDescriptor{"Campanha Removida", "trash", "red", SectionCampaigns}, nil
	case ActivityAlertSent:
		return ActivityDescriptor{"Alerta Enviado", "alert-triangle", "yellow", SectionCampaigns}, nil
	case ActivityAppointmentCreated:
		return ActivityDescriptor{"Novo Agendamento", "clock", "purple", SectionAppointments}, nil
	case ActivityAppointmentConfirmed:
		return ActivityDescriptor{"Agendamento Confirmado", "check-circle", "green", SectionAppointments}, nil
	case ActivityAppointmentCancelled:
		return ActivityDescriptor{"Agendamento Cancelado", "trash", "red", SectionAppointments}, nil
	case ActivityAppointmentNoShow:
		return ActivityDescriptor{"Não Comparecimento", "user-x", "gray", SectionAppointments}, nil
	case ActivityAppointmentReactivated:
		return ActivityDescriptor{"Agendamento Reativado", "edit", "yellow", SectionAppointments}, nil
	case ActivityDonationCompleted:
		return ActivityDescriptor{"Coleta Realizada", "check-circle", "green", SectionAppointments}, nil
	}
	return ActivityDescriptor{}, apperrors.NewValidationError(fmt.Sprintf("unknown activity type %q", string(t)))
}

// Section returns the screen section of t
func (t ActivityType) Section() ActivitySection {
	d, _ := t.Describe()
	return d.Section
}

// Value implements driver.Valuer, refusing types outside the enum
func (t ActivityType) Value() (driver.Value, error) {
	if _, err := t.Describe(); err != nil {
		return nil, err
	}
	return string(t), nil
}

// ActivityTypesIn returns every type shown in section
func ActivityTypesIn(section ActivitySection) []ActivityType {
	var out []ActivityType
	for _, t := range allActivityTypes {
		if t.Section() == section {
			out = append(out, t)
		}
	}
	return out
}

var allActivityTypes = []ActivityType{
	ActivityDonorCreated, ActivityDonorUpdated, ActivityDonorDeactivated,
	ActivityCampaignCreated, ActivityCampaignUpdated, ActivityCampaignDeleted, ActivityAlertSent,
	ActivityAppointmentCreated, ActivityAppointmentConfirmed, ActivityAppointmentCancelled,
	ActivityAppointmentNoShow, ActivityAppointmentReactivated, ActivityDonationCompleted,
}

// ActivityForTransition maps a status change to the log entry it produces
func ActivityForTransition(to AppointmentStatus, from AppointmentStatus) ActivityType {
	switch to {
	case AppointmentStatusConfirmed:
		if from == AppointmentStatusPending {
			return ActivityAppointmentConfirmed
		}
		return ActivityAppointmentReactivated
	case AppointmentStatusCancelled:
		return ActivityAppointmentCancelled
	case AppointmentStatusCompleted:
		return ActivityDonationCompleted
	case AppointmentStatusNoShow:
		return ActivityAppointmentNoShow
	default:
		return ActivityAppointmentCreated
	}
}

// Activity is one entry of the append-only activity log
type Activity struct {
	ID          string       `json:"id" db:"id"`
	FacilityID  string       `json:"facility_id" db:"facility_id"`
	Type        ActivityType `json:"type" db:"type"`
	Description string       `json:"description" db:"description"`
	SubjectID   string       `json:"subject_id,omitempty" db:"subject_id"`
	ActorID     string       `json:"actor_id,omitempty" db:"actor_id"`
	OccurredAt  time.Time    `json:"occurred_at" db:"occurred_at"`
}

// MarshalJSON embeds the display descriptor next to the stored fields
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	desc, _ := a.Type.Describe()
	return json.Marshal(struct {
		plain
		Display ActivityDescriptor `json:"display"`
	}{plain(a), desc})
}
