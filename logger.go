package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the log section.
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// requestLogFormatter writes one logrus line per HTTP request.
type requestLogFormatter struct {
	logger logrus.FieldLogger
}

func (f requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{
		entry: f.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
			"request_id": middleware.GetReqID(r.Context()),
		}),
	}
}

type requestLogEntry struct {
	entry *logrus.Entry
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	entry := e.entry.WithFields(logrus.Fields{
		"status":   status,
		"bytes":    bytes,
		"duration": elapsed,
	})
	switch {
	case status >= 500:
		entry.Error("request completed")
	case status >= 400:
		entry.Warn("request completed")
	default:
		entry.Debug("request completed")
	}
}

func (e *requestLogEntry) Panic(v any, stack []byte) {
	e.entry.WithField("stack", string(stack)).Errorf("panic: %v", v)
}

// RequestLogger is chi request logging backed by logger.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(requestLogFormatter{logger: logger})
}
