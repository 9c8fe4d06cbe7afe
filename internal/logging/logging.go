// Package logging wraps logrus the way the teacher's logger package
// does (custom formatter, caller annotation), but as an instance owned
// by a ServerContext instead of package-level globals, per the
// "Global mutable singletons" design note.
package logging

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the Debug/Info/Warning/Error collaborator from spec.md §6.
type Logger struct {
	l *logrus.Logger
}

// Config controls the log level; output goes to logrus's default
// destination (stderr).
type Config struct {
	Level string // debug, info, warn, error
}

// New builds a private Logger instance; never assigns to a package-level var.
func New(cfg Config) *Logger {
	l := logrus.New()
	l.SetFormatter(&callerFormatter{})
	l.SetLevel(parseLevel(cfg.Level))
	return &Logger{l: l}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (lg *Logger) Debug(format string, args ...interface{}) { lg.l.Debugf(format, args...) }
func (lg *Logger) Info(format string, args ...interface{})  { lg.l.Infof(format, args...) }
func (lg *Logger) Warning(format string, args ...interface{}) { lg.l.Warnf(format, args...) }
func (lg *Logger) Error(format string, args ...interface{}) { lg.l.Errorf(format, args...) }

// callerFormatter mirrors logger.CustomFormatter's "[time] [LEVEL] (caller) msg" layout.
type callerFormatter struct{}

func (f *callerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format("15:04:05 MST 2006/01/02")
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	caller := findCaller()
	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s\n", ts, level, caller, entry.Message)), nil
}

func findCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") || strings.Contains(file, "logging/logging.go") {
			continue
		}
		fn := runtime.FuncForPC(pc).Name()
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), fn, line)
	}
	return "unknown:unknown:0"
}
