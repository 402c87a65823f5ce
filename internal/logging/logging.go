// Package logging builds the process logger and forwards errors to Sentry
// when a DSN is configured.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// New returns a logger for the given gin mode. Release mode logs JSON,
// anything else logs text at debug level.
func New(mode string) *logrus.Logger {
	return newWithOutput(mode, os.Stdout)
}

func newWithOutput(mode string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if mode == "release" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}

// Discard returns a logger that drops everything, for tests and the CLI.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// InitSentry initializes the Sentry client. An empty DSN disables capture.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// Flush waits for buffered Sentry events to be sent
func Flush() {
	sentry.Flush(2 * time.Second)
}

// CaptureError logs err with its context and reports it to Sentry
func CaptureError(log logrus.FieldLogger, err error, kind string, fields logrus.Fields) {
	if err == nil {
		return
	}

	entry := log.WithFields(fields).WithField("error_type", kind).WithError(err)
	entry.Error("error occurred")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", kind)
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}
