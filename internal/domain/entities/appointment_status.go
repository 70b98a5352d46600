package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AppointmentStatus is the closed set of appointment lifecycle states.
// The zero value is not a valid status.
type AppointmentStatus uint8

const (
	AppointmentStatusPending AppointmentStatus = iota + 1
	AppointmentStatusConfirmed
	AppointmentStatusCancelled
	AppointmentStatusCompleted
	AppointmentStatusNoShow
)

// AllAppointmentStatuses lists every valid status in lifecycle order
var AllAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCancelled,
	AppointmentStatusCompleted,
	AppointmentStatusNoShow,
}

// StatusDescriptor is how a status is shown to the operator
type StatusDescriptor struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Code returns the wire/storage representation
func (s AppointmentStatus) Code() string {
	switch s {
	case AppointmentStatusPending:
		return "pending"
	case AppointmentStatusConfirmed:
		return "confirmed"
	case AppointmentStatusCancelled:
		return "cancelled"
	case AppointmentStatusCompleted:
		return "completed"
	case AppointmentStatusNoShow:
		return "no_show"
	default:
		return ""
	}
}

func (s AppointmentStatus) String() string {
	if code := s.Code(); code != "" {
		return code
	}
	return fmt.Sprintf("AppointmentStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses
func (s AppointmentStatus) Valid() bool {
	return s.Code() != ""
}

// Display returns the badge descriptor for s
func (s AppointmentStatus) Display() StatusDescriptor {
	switch s {
	case AppointmentStatusPending:
		return StatusDescriptor{Code: s.Code(), Label: "Pendente", Color: "yellow"}
	case AppointmentStatusConfirmed:
		return StatusDescriptor{Code: s.Code(), Label: "Confirmado", Color: "green"}
	case AppointmentStatusCancelled:
		return StatusDescriptor{Code: s.Code(), Label: "Cancelado", Color: "red"}
	case AppointmentStatusCompleted:
		return StatusDescriptor{Code: s.Code(), Label: "Concluído", Color: "blue"}
	case AppointmentStatusNoShow:
		return StatusDescriptor{Code: s.Code(), Label: "Não compareceu", Color: "gray"}
	default:
		return StatusDescriptor{Code: "", Label: "Desconhecido", Color: "gray"}
	}
}

// ParseAppointmentStatus accepts the wire code or the pt-BR label stored by
// the legacy dashboard ("Pendente", "Confirmado", "Cancelado").
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, status := range AllAppointmentStatuses {
		if key == status.Code() || key == strings.ToLower(status.Display().Label) {
			return status, nil
		}
	}
	switch key {
	case "noshow", "no-show":
		return AppointmentStatusNoShow, nil
	case "concluido":
		return AppointmentStatusCompleted, nil
	}
	return 0, apperrors.NewValidationError(fmt.Sprintf("unknown appointment status %q", s))
}

func (s AppointmentStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid appointment status %d", uint8(s))
	}
	return json.Marshal(s.Code())
}

func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperrors.NewValidationError("status must be a string")
	}
	parsed, err := ParseAppointmentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer
func (s AppointmentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid appointment status %d", uint8(s))
	}
	return s.Code(), nil
}

// Scan implements sql.Scanner
func (s *AppointmentStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into AppointmentStatus", src)
	}
	parsed, err := ParseAppointmentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
