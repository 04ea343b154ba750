package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if strings.TrimSpace(c.Oracle.Model) == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if strings.TrimSpace(c.Broker.APIURL) == "" {
		return fmt.Errorf("broker.api_url is required")
	}
	if c.Instruments.MinScore >= 1 {
		return fmt.Errorf("instruments.min_score must be below 1.0 (got %v)", c.Instruments.MinScore)
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is not recognized", c.App.LogLevel)
	}
	return nil
}
