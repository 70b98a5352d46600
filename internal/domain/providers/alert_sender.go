package providers

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// BloodTypeAlert asks donors of the listed blood types to come donate
type BloodTypeAlert struct {
	Campaign   *entities.Campaign
	Facility   *entities.Facility
	BloodTypes []string
	Message    string
}

// AlertSender delivers blood-type alerts to an external channel
type AlertSender interface {
	// SendBloodTypeAlert publishes the alert and returns the provider message id
	SendBloodTypeAlert(ctx context.Context, alert BloodTypeAlert) (string, error)
}
