// Package logging configures the logrus logger used by every command.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to out. Unknown levels fall back to info,
// unknown formats to text. It does not touch the global logrus logger.
func New(levelStr, formatStr string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if formatStr == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
