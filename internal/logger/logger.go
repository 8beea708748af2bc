package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger at the given level, falling back to info when the level
// does not parse. JSON output is used for services; the terminal board keeps
// the text formatter.
func New(level string, json bool) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if json {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}

	log.SetOutput(os.Stdout)
	return log
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func WithComponent(log logrus.FieldLogger, component string) logrus.FieldLogger {
	return log.WithField("component", component)
}
