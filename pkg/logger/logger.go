package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/workforce/tracker/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *log.Logger
var rotator *lumberjack.Logger

// Init initializes the logger. Output goes to the rotated log file named by
// log.file; with an empty path it goes to stderr.
func Init(verbose bool) {
	logLevel, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		logLevel = log.InfoLevel
	}
	if verbose {
		logLevel = log.DebugLevel
	}

	var out io.Writer = os.Stderr
	if logFile := config.GetString("log.file"); logFile != "" {
		rotator = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		out = rotator
	}

	logger = log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          "tracker",
	})
	logger.SetLevel(logLevel)
}

// SetOutput redirects the logger, creating it when Init has not run
func SetOutput(w io.Writer) {
	if logger == nil {
		logger = log.New(w)
		return
	}
	logger.SetOutput(w)
}

// Close flushes and closes the rotated log file
func Close() error {
	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	if logger != nil {
		logger.Fatal(msg, args...)
	} else {
		os.Exit(1)
	}
}

// GetLogger returns the logger instance
func GetLogger() *log.Logger {
	return logger
}
