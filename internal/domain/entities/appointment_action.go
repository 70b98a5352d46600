package entities

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AppointmentAction is an operator command on an appointment
type AppointmentAction uint8

const (
	ActionApprove AppointmentAction = iota + 1
	ActionReject
	ActionCancel
	ActionConclude
	ActionMarkNoShow
	ActionReactivate
)

var allActions = []AppointmentAction{
	ActionApprove, ActionReject, ActionCancel, ActionConclude, ActionMarkNoShow, ActionReactivate,
}

func (a AppointmentAction) Code() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionCancel:
		return "cancel"
	case ActionConclude:
		return "conclude"
	case ActionMarkNoShow:
		return "mark_no_show"
	case ActionReactivate:
		return "reactivate"
	default:
		return ""
	}
}

// Label is the button text shown for the action
func (a AppointmentAction) Label() string {
	switch a {
	case ActionApprove:
		return "Aprovar"
	case ActionReject:
		return "Recusar"
	case ActionCancel:
		return "Cancelar"
	case ActionConclude:
		return "Concluir doação"
	case ActionMarkNoShow:
		return "Não compareceu"
	case ActionReactivate:
		return "Reativar"
	default:
		return ""
	}
}

func (a AppointmentAction) String() string {
	if code := a.Code(); code != "" {
		return code
	}
	return fmt.Sprintf("AppointmentAction(%d)", uint8(a))
}

// ParseAppointmentAction parses an action code
func ParseAppointmentAction(s string) (AppointmentAction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	for _, action := range allActions {
		if key == action.Code() {
			return action, nil
		}
	}
	return 0, apperrors.NewValidationError(fmt.Sprintf("unknown appointment action %q", s))
}

func (a AppointmentAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Code())
}

func (a *AppointmentAction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperrors.NewValidationError("action must be a string")
	}
	parsed, err := ParseAppointmentAction(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Transition returns the status reached by applying action to from.
// past tells whether the appointment's slot has already started; Confirmed
// appointments may only be concluded or marked no-show once past, and only
// cancelled while still upcoming.
func Transition(from AppointmentStatus, action AppointmentAction, past bool) (AppointmentStatus, error) {
	switch from {
	case AppointmentStatusPending:
		switch action {
		case ActionApprove:
			return AppointmentStatusConfirmed, nil
		case ActionReject:
			return AppointmentStatusCancelled, nil
		}
	case AppointmentStatusConfirmed:
		switch {
		case action == ActionCancel && !past:
			return AppointmentStatusCancelled, nil
		case action == ActionConclude && past:
			return AppointmentStatusCompleted, nil
		case action == ActionMarkNoShow && past:
			return AppointmentStatusNoShow, nil
		}
	case AppointmentStatusCancelled, AppointmentStatusNoShow:
		if action == ActionReactivate {
			return AppointmentStatusConfirmed, nil
		}
	case AppointmentStatusCompleted:
		// terminal
	}
	return 0, NewInvalidTransitionError(from, action, past)
}

// AvailableActions lists the actions Transition accepts for from, in display order
func AvailableActions(from AppointmentStatus, past bool) []AppointmentAction {
	actions := make([]AppointmentAction, 0, 2)
	for _, action := range allActions {
		if _, err := Transition(from, action, past); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

// NewInvalidTransitionError builds the validation error returned for a rejected transition
func NewInvalidTransitionError(from AppointmentStatus, action AppointmentAction, past bool) error {
	when := "upcoming"
	if past {
		when = "past"
	}
	return apperrors.NewValidationError(fmt.Sprintf("invalid transition: cannot %s a %s %s appointment", action, when, from))
}
