// Package log provides loggers used across esdr.
package log

import (
	"io/ioutil"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("ESDR_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance. Debug level is enabled with
// ESDR_DEBUG environment variable.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithLevel returns a new logger with provided level. Empty level keeps
// the default one.
func WithLevel(level string) (*logrus.Logger, error) {
	l := GetLogger()
	if level == "" {
		return l, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	return l, nil
}

// Silent returns a logger that discards everything.
func Silent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}
