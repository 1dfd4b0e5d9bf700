package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var Logger = discard()

// logFile is the file opened by the last Init, closed on the next Init or Reset.
var logFile *os.File

// Init configures the global logger. level is one of debug, info, warn, error.
// When file is set, output is appended there as well. quiet drops console
// output, which the terminal browser needs while it owns the screen.
func Init(level string, file string, quiet bool) error {
	writers := []io.Writer{}
	if !quiet {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}
	var opened *os.File
	if file != "" {
		fileWriter, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		opened = fileWriter
		writers = append(writers, fileWriter)
	}

	var output io.Writer = io.Discard
	if len(writers) == 1 {
		output = writers[0]
	} else if len(writers) > 1 {
		output = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(output).With().Timestamp().Logger().Level(parseLevel(level))
	Logger = &logger
	closeFile()
	logFile = opened
	return nil
}

// Get returns the global logger, which discards everything before Init.
func Get() *zerolog.Logger {
	return Logger
}

// Reset restores the discarding logger.
func Reset() {
	Logger = discard()
	closeFile()
}

func closeFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func discard() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
