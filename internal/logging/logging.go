package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"epcsync/internal/config"
)

// Setup configures the process-wide logrus logger from cfg and returns it.
// An unknown level falls back to info.
func Setup(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.StandardLogger()
	if out != nil {
		logger.SetOutput(out)
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if err != nil && cfg.Level != "" {
		logger.Warnf("logging.Setup: unknown log level %q, using info", cfg.Level)
	}
	return logger
}
