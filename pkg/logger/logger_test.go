package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("run_id", "r1"))

	l.Warn("ambiguous bar",
		String("strategy_id", "MGC_0900_E1_O5"),
		Int("bars", 3),
		Float64("r", -1),
		Bool("ambiguous", true),
		Duration("took_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "ambiguous bar", got["message"])
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, "MGC_0900_E1_O5", got["strategy_id"])
	assert.Equal(t, 3.0, got["bars"])
	assert.Equal(t, true, got["ambiguous"])
	assert.Equal(t, 1500.0, got["took_ms"])
	assert.Equal(t, "boom", got["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
