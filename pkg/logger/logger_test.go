package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("key", "SKU001").Msg("forecast done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "SKU001", entry["key"])
	assert.Equal(t, "forecast done", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewToConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, Config{Level: "debug"})
	require.NoError(t, err)

	log.Debug().Int("line", 4).Msg("skipping row")
	assert.Contains(t, buf.String(), "skipping row")
	assert.Contains(t, buf.String(), "line=4")
}

func TestNewToErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad level", cfg: Config{Level: "loud"}},
		{name: "bad format", cfg: Config{Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTo(&bytes.Buffer{}, tt.cfg)
			assert.Error(t, err)
		})
	}
}
