package logger

import (
	"fmt"
	"strings"

	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"
)

// New builds the process logger; the same value backs the request logging middleware
func New(service, level string, json bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
		}
		lvl = parsed
	}

	logger := httplog.NewLogger(service, httplog.Options{
		JSON: json,
	})
	// httplog configures the global level; the configured one wins
	zerolog.SetGlobalLevel(lvl)

	return logger.Level(lvl), nil
}
