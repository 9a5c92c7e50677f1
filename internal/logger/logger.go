package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Default level
	Logger.SetLevel(logrus.InfoLevel)

	// Override from env, e.g., LOG_LEVEL=debug
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsedLevel, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
			Logger.SetLevel(parsedLevel)
		}
	}
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// ApplyLevel sets the logger level from its textual name. When debug is true
// the level is raised to at least debug. The previous level is kept on error.
func ApplyLevel(level string, debug bool) (logrus.Level, error) {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return Logger.GetLevel(), err
	}
	if debug && parsed < logrus.DebugLevel {
		parsed = logrus.DebugLevel
	}
	Logger.SetLevel(parsed)
	return parsed, nil
}
