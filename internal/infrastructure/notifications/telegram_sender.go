package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
	"github.com/hemoglovida/dashboard/backend/pkg/retry"
)

// botAPI is the subset of tgbotapi.BotAPI used for alerts
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts blood-type alerts to a Telegram channel
type TelegramSender struct {
	bot       botAPI
	channelID int64
	retry     retry.Config
	logger    zerolog.Logger
}

// NewTelegramSender connects the bot with the configured token
func NewTelegramSender(cfg *config.TelegramConfig, logger zerolog.Logger) (*TelegramSender, error) {
	if cfg.BotToken == "" || cfg.ChannelID == 0 {
		return nil, fmt.Errorf("TG_TOKEN and TG_CHANNEL_ID must be set")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")

	return newTelegramSender(bot, cfg.ChannelID, logger), nil
}

func newTelegramSender(bot botAPI, channelID int64, logger zerolog.Logger) *TelegramSender {
	return &TelegramSender{
		bot:       bot,
		channelID: channelID,
		retry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  time.Second,
			MaxDelay:      4 * time.Second,
			BackoffFactor: 2,
		},
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

// SendBloodTypeAlert publishes the alert and returns the Telegram message id
func (s *TelegramSender) SendBloodTypeAlert(ctx context.Context, alert providers.BloodTypeAlert) (string, error) {
	msg := tgbotapi.NewMessage(s.channelID, FormatBloodTypeAlert(alert))

	var sent tgbotapi.Message
	err := retry.DoWithLog(ctx, s.retry, "telegram", func() error {
		var err error
		sent, err = s.bot.Send(msg)
		return err
	}, retry.Logger(s.logger, "telegram"))
	if err != nil {
		s.logger.Error().Err(err).Msg("send permanently failed")
		return "", fmt.Errorf("failed to send telegram alert: %w", err)
	}

	return strconv.Itoa(sent.MessageID), nil
}

// FormatBloodTypeAlert renders the channel message in pt-BR
func FormatBloodTypeAlert(alert providers.BloodTypeAlert) string {
	var b strings.Builder
	b.WriteString("🩸 Alerta de estoque")
	if len(alert.BloodTypes) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(alert.BloodTypes, ", "))
	}
	b.WriteString("\n")

	if alert.Campaign != nil {
		fmt.Fprintf(&b, "\nCampanha: %s", alert.Campaign.Name)
		if !alert.Campaign.StartDate.IsZero() {
			fmt.Fprintf(&b, "\nPeríodo: %s a %s", alert.Campaign.StartDate.Display(), alert.Campaign.EndDate.Display())
		}
		if alert.Campaign.Location != "" {
			fmt.Fprintf(&b, "\nLocal: %s", alert.Campaign.Location)
		}
	}
	if alert.Facility != nil {
		fmt.Fprintf(&b, "\n%s", alert.Facility.Name)
		if alert.Facility.Phone != "" {
			fmt.Fprintf(&b, " · %s", alert.Facility.Phone)
		}
	}
	if msg := strings.TrimSpace(alert.Message); msg != "" {
		b.WriteString("\n\n")
		b.WriteString(msg)
	}
	return b.String()
}

// LogSender records alerts in the log when Telegram is disabled
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendBloodTypeAlert logs the alert text
func (s *LogSender) SendBloodTypeAlert(ctx context.Context, alert providers.BloodTypeAlert) (string, error) {
	s.logger.Info().Strs("blood_types", alert.BloodTypes).Str("text", FormatBloodTypeAlert(alert)).Msg("blood type alert (telegram disabled)")
	return "", nil
}
