package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildConfig(t *testing.T) {
	prod := buildConfig("production")
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, zapcore.InfoLevel, prod.Level.Level())
	assert.Equal(t, []string{"stdout"}, prod.OutputPaths)

	dev := buildConfig("development")
	assert.Equal(t, "console", dev.Encoding)
	assert.True(t, dev.Development)
	assert.Equal(t, zapcore.DebugLevel, dev.Level.Level())
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		log, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, log)
	}
}

// Feature: phone-pos, Property 9: Production logs are structured
func TestProperty_ProductionLogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every production entry is a JSON object with the service and typed fields", prop.ForAll(
		func(message string, receipt string) bool {
			var buf bytes.Buffer
			config := buildConfig("production")
			core := zapcore.NewCore(zapcore.NewJSONEncoder(config.EncoderConfig), zapcore.AddSync(&buf), config.Level)
			log := zap.New(core).With(zap.String("service", ServiceName))

			log.Info(message, zap.String("receipt", receipt), zap.Int("points_earned", 3))
			log.Sync()

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}
			return entry["msg"] == message &&
				entry["service"] == ServiceName &&
				entry["receipt"] == receipt &&
				entry["points_earned"] == float64(3) &&
				entry["level"] == "info" &&
				entry["timestamp"] != nil
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
