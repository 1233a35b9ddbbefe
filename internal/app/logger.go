package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments set
// LOG_FORMAT=json for the log pipeline; anything else gets the text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.IsProduction() {
		opts.Level = slog.LevelInfo
	} else {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
