package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger with the given level. Logs go to
// stderr so the final throughput line on stdout stays machine-readable.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
