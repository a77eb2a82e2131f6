package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, Options{Level: "warn"}))

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"caller"`)
}

func TestSetup_Console(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, Options{Level: "debug", Console: true}))

	log.Debug().Msg("readable")
	assert.Contains(t, buf.String(), "readable")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestSetup_BadLevel(t *testing.T) {
	assert.Error(t, Setup(&bytes.Buffer{}, Options{Level: "loud"}))
}

func restoreLogger(t *testing.T) {
	original := log.Logger
	t.Cleanup(func() { log.Logger = original })
}
