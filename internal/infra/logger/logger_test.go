package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(context.Background(), &buf, "debug", true)

	log.With(logrus.Fields{"exchange_id": "ex-1"}).Info("staged", logrus.Fields{"state": "STAGED"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "staged", entry["msg"])
	assert.Equal(t, "ex-1", entry["exchange_id"])
	assert.Equal(t, "STAGED", entry["state"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(context.Background(), &buf, "warn", true)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(context.Background(), &buf, "loud", true)

	log.Debug("dropped")
	log.Info("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
