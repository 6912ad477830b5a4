package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a configured application logger writing to stderr.
// It standardizes the "error" key to "err".
func New(level slog.Level) *slog.Logger {
	return slog.New(NewTextHandler(os.Stderr, level))
}

// NewTextHandler returns the text handler used by New
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	})
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
