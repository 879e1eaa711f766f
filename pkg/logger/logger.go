// Package logger builds the zerolog loggers used across the pdfx backend.
//
// The zero value path logs structured JSON to stdout at info level; dev
// setups usually want Pretty for console output and debug level, and tests
// point FromBuffer at a bytes.Buffer to assert on emitted lines.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// LogBuild accumulates logger configuration before Make.
type LogBuild struct {
	writer io.Writer
	path   string
	level  string
	pretty bool
}

// LogData is a built logger plus the file handle backing it, if any, so the
// caller can close it on shutdown.
type LogData struct {
	writer  io.Writer
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{}
}

// FromPath appends log lines to the named file.
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

// FromBuffer writes log lines to the given writer instead of stdout.
func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel sets the minimum level by name (trace, debug, info, warn,
// error). Unknown or empty names fall back to info.
func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

// Pretty switches from JSON lines to human-readable console output.
func (build *LogBuild) Pretty() *LogBuild {
	build.pretty = true
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	logData.writer = os.Stdout
	if build.writer != nil {
		logData.writer = build.writer
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}
	if build.pretty {
		logData.writer = zerolog.ConsoleWriter{Out: logData.writer}
	}

	level := zerolog.InfoLevel
	if build.level != "" {
		if parsed, perr := zerolog.ParseLevel(build.level); perr == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	logData.Logger = zerolog.New(logData.writer).Level(level).With().Timestamp().Logger()
	return
}
