// Package logger builds the process-wide logrus logger.
package logger

import (
    "os"

    "github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  Production environments get
// JSON output; everything else gets the human-friendly text formatter.
// An unparsable level falls back to info.
func New(env, level string) *logrus.Logger {
    l := logrus.New()
    l.SetOutput(os.Stdout)
    if env == "prod" || env == "production" {
        l.SetFormatter(&logrus.JSONFormatter{})
    } else {
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    }
    lvl, err := logrus.ParseLevel(level)
    if err != nil {
        lvl = logrus.InfoLevel
    }
    l.SetLevel(lvl)
    return l
}
