// Package logging wires the proxy's structured logger.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// New builds a slog.Logger with a colorized console handler, the same
// construction incrementventures-govr's camscan CLI uses for its ONVIF
// network scanner: tint.NewHandler over os.Stderr, level taken from config.
func New(levelName string) *slog.Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      ParseLevel(levelName),
		TimeFormat: "15:04:05.000",
	})
	return slog.New(handler)
}

// ParseLevel maps the LOG_LEVEL configuration value to a slog.Level,
// defaulting to Info for anything unrecognized.
func ParseLevel(levelName string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelName)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
