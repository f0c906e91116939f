// Package logging configures the shared logrus logger, generalized from
// the teacher's internal/utils/logger.go into an appName-parameterized
// log directory instead of a hardcoded one.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at level, writing to
// ~/.config/<appName>/logs/<appName>.log when that directory is writable,
// falling back to stderr otherwise.
func New(appName, level string) *logrus.Logger {
	log := logrus.New()

	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	log.SetLevel(parsedLevel)

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logDir := filepath.Join(os.Getenv("HOME"), ".config", appName, "logs")
	if err := os.MkdirAll(logDir, 0o755); err == nil {
		logFile := filepath.Join(logDir, fmt.Sprintf("%s.log", appName))
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			log.SetOutput(file)
		}
	}

	return log
}
