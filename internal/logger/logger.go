// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
}

// Initialize sets the log level from the given string, falling back to the
// LOG_LEVEL environment variable and then to info.
func Initialize(level string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		log.SetLevel(logrus.InfoLevel)
		return
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'", level)
		log.SetLevel(logrus.InfoLevel)
		return
	}
	log.SetLevel(parsed)
	log.Debugf("Log level set to '%s'", parsed)
}

// SetOutput redirects log output. Tests use it to silence or capture logs.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// L returns the underlying logger.
func L() *logrus.Logger {
	return log
}

// WithJob returns an entry tagged with the job id.
func WithJob(jobID string) *logrus.Entry {
	return log.WithField("job_id", jobID)
}

// WithFields returns an entry with the given fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Debugf logs a message at the debug level
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Infof logs a message at the info level
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs a message at the warn level
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs a message at the error level
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
