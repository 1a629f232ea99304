// Package logger provides process-wide logging for awesometrack.
// Messages are written through zerolog. Debug output is only emitted
// when verbose mode is enabled via the --verbose flag; progress and
// warnings are always emitted.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	json    bool
	color   bool
	output  io.Writer = os.Stderr
	zl                = build()
)

// build must be called with mu held for writing (or during init).
func build() zerolog.Logger {
	w := zerolog.SyncWriter(output)
	if !json {
		w = zerolog.ConsoleWriter{Out: w, NoColor: !color, TimeFormat: "15:04:05"}
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	zl = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between console and JSON line output.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	json = v
	zl = build()
}

// SetColor enables ANSI colours in console output.
func SetColor(v bool) {
	mu.Lock()
	defer mu.Unlock()
	color = v
	zl = build()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	zl = build()
}

// Get returns the underlying zerolog logger for callers that want
// structured fields.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zl
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	zl.Debug().Msg(fmt.Sprintf(format, args...))
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		zl.Info().Msg("=== " + name + " ===")
	}
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	zl.Error().Msg(fmt.Sprintf(format, args...))
}
