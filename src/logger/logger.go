// Package logger provides the logging interface used throughout travis-metrics.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Options configures a ZerologLogger.
type Options struct {
	// Verbose enables debug output.
	Verbose bool
	// Quiet limits output to warnings and errors.
	Quiet bool
	// File, when set, receives a JSON copy of every entry with size-based rotation.
	File string
	// Console overrides the console destination. Defaults to stderr.
	Console io.Writer
	// NoColor disables ANSI colors on the console writer.
	NoColor bool
}

// ZerologLogger writes human-readable logs to stderr and, optionally, JSON logs to a rotating file.
// Stdout is reserved for the per-build progress lines.
type ZerologLogger struct {
	log  zerolog.Logger
	file io.Closer
}

// NewZerologLogger builds a ZerologLogger from opts.
func NewZerologLogger(opts Options) *ZerologLogger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var writer io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    opts.NoColor,
		TimeFormat: time.RFC3339,
	}

	var file io.WriteCloser
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		writer = zerolog.MultiLevelWriter(writer, file)
	}

	return &ZerologLogger{
		log:  zerolog.New(writer).Level(selectLevel(opts.Verbose, opts.Quiet)).With().Timestamp().Logger(),
		file: file,
	}
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *ZerologLogger) Info(msg string, args ...interface{}) {
	z.log.Info().Msg(format(msg, args))
}

func (z *ZerologLogger) Warn(msg string, args ...interface{}) {
	z.log.Warn().Msg(format(msg, args))
}

func (z *ZerologLogger) Error(msg string, args ...interface{}) {
	z.log.Error().Msg(format(msg, args))
}

func (z *ZerologLogger) Debug(msg string, args ...interface{}) {
	z.log.Debug().Msg(format(msg, args))
}

// Close releases the log file, if any. Safe to call more than once.
func (z *ZerologLogger) Close() error {
	if z.file == nil {
		return nil
	}
	err := z.file.Close()
	z.file = nil
	return err
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// SilentLogger discards all log messages.
// Used in tests and wherever log output would interfere with stdout consumers.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
