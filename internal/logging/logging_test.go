package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel_KnownLevels(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("INFO"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
}

func TestParseLevel_Unknown_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("not_a_level"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}

func TestSetup_InstallsGlobalLevel(t *testing.T) {
	Setup("error", false)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestSetup_ReturnsUsableLogger(t *testing.T) {
	logger := Setup("info", true)
	assert.NotPanics(t, func() {
		logger.Info().Msg("smoke test")
	})
}
