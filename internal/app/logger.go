package app

import "github.com/sportperformance/academy-api/pkg/logger"

// ConfigureLogging initialises the global logger from configuration.
func ConfigureLogging(cfg *Config) error {
	return logger.Init(cfg.Logging.Level)
}
