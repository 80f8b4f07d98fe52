package config

import "strings"

// LogConfig selects the slog handler and minimum level.
type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

func LoadLogConfigFromEnv() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
		Format: strings.ToLower(envString("LOG_FORMAT", "json")),
	}
}
