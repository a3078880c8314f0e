package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/logging"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.Logging{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.WithField("employee", "emp-1").Warn("rest period short")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rest period short", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "emp-1", entry["employee"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.Logging{Level: "debug", Format: "text"}, &buf)

	log.Debug("evaluating")

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "msg=evaluating")
}

func TestNewWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := logging.NewWithWriter(config.Logging{Level: "chatty"}, &bytes.Buffer{})

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
