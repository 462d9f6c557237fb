package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONErrorCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", JSON: true, Out: &buf})
	require.NoError(t, err)

	log.Error("ThresholdService", errors.New("bad channel"), map[string]interface{}{
		"path": "/data/a.tif",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "ThresholdService", entry["component"])
	assert.Equal(t, "bad channel", entry["error"])
	assert.Equal(t, "/data/a.tif", entry["path"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", JSON: true, Out: &buf})
	require.NoError(t, err)

	log.Debug("x", "hidden", nil)
	assert.Zero(t, buf.Len())
}
