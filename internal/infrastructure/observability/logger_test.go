package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
)

func TestOtelHookWithExportEnabled(t *testing.T) {
	InitLogger("hemoglovida-test", "test")
	EnableLogExport(noop.NewLoggerProvider().Logger("test"))
	t.Cleanup(func() { exportLogger.Store(nil) })

	assert.NotPanics(t, func() {
		GetLogger().Warn().Str("appointment_id", "apt-1").Msg("donor update pending")
		GetLogger().Info().Ctx(context.Background()).Msg("with context")
	})
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, otellog.SeverityError, severityOf(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityInfo, severityOf(zerolog.InfoLevel))
	assert.Equal(t, otellog.SeverityWarn, severityOf(zerolog.WarnLevel))
	assert.Equal(t, otellog.SeverityUndefined, severityOf(zerolog.NoLevel))
}

func TestLoggerFromContextWithoutSpan(t *testing.T) {
	InitLogger("hemoglovida-test", "test")
	logger := LoggerFromContext(context.Background())
	assert.NotNil(t, logger)
}
