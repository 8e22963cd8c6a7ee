package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/config"
	"epcsync/internal/logging"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	logger.WithField("identity", "a.pdf").Debug("pipeline.Process: started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pipeline.Process: started", line["msg"])
	assert.Equal(t, "a.pdf", line["identity"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(config.LogConfig{Level: "chatty", Format: "text"}, &buf)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
