package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Level defaults to info;
// set CASEFLOW_LOG_LEVEL=debug to see per-record sync decisions.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CASEFLOW_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
