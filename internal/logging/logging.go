// Package logging sets up the logrus.Logger respd passes down to the
// server package; nothing in this module logs through a global logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger writing JSON-formatted entries to
// stderr at the given level. An unrecognized level falls back to
// Info rather than failing startup over a typo'd flag.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
