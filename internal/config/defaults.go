package config

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9980"
	}
	if c.Oracle.APIURL == "" {
		c.Oracle.APIURL = "https://api.openai.com/v1"
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 60
	}
	if c.Oracle.MaxRetries < 0 {
		c.Oracle.MaxRetries = 0
	}
	if c.Broker.TimeoutSeconds <= 0 {
		c.Broker.TimeoutSeconds = 15
	}
	if c.Broker.ReadRetries <= 0 {
		c.Broker.ReadRetries = 2
	}
	if c.Broker.BreakerThreshold <= 0 {
		c.Broker.BreakerThreshold = 5
	}
	if c.Broker.BreakerCooldownSeconds <= 0 {
		c.Broker.BreakerCooldownSeconds = 30
	}
	if c.Instruments.DBPath == "" {
		c.Instruments.DBPath = "data/instruments.db"
	}
	if c.Instruments.MaxDistance <= 0 {
		c.Instruments.MaxDistance = 3
	}
	if c.Instruments.MinScore <= 0 {
		c.Instruments.MinScore = 0.6
	}
	if c.Confirm.TTLSeconds <= 0 {
		c.Confirm.TTLSeconds = 180
	}
	if c.Confirm.SweepSeconds <= 0 {
		c.Confirm.SweepSeconds = 30
	}
	if c.Analysis.MaxConcurrency <= 0 {
		c.Analysis.MaxConcurrency = 4
	}
	if c.Analysis.MoversCount <= 0 {
		c.Analysis.MoversCount = 5
	}
	if c.Store.DBPath == "" {
		c.Store.DBPath = "data/kuber.db"
	}
}
