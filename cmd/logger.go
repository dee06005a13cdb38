package cmd

import (
	"io"
	"log/slog"
)

// NewLogger returns a structured slog.Logger writing JSON to w at the given level.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
