package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.InfoLevel)
}

// Configure switches format and level once configuration is known.
// Production gets JSON lines; anything else stays human readable.
func Configure(environment, level string) {
	if environment == "production" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		base.Warnf("unknown log level %q, keeping %s", level, base.GetLevel())
		return
	}
	base.SetLevel(parsed)
}

// Logger exposes the underlying logrus logger for integrations such as
// echo's request logger.
func Logger() *logrus.Logger {
	return base
}

func Info(format string, v ...interface{}) {
	base.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// WithFields returns an entry carrying structured context, e.g. the
// negotiation id and actor of a transition.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

func LogTransitionError(entity, entityID, action string, err error) {
	base.WithFields(logrus.Fields{
		"entity":    entity,
		"entity_id": entityID,
		"action":    action,
	}).Warnf("transition failed: %v", err)
}
