package config

// Config is the top-level configuration carrier.
type Config struct {
	App         AppConfig         `toml:"app"`
	Oracle      OracleConfig      `toml:"oracle"`
	Broker      BrokerConfig      `toml:"broker"`
	Instruments InstrumentsConfig `toml:"instruments"`
	Confirm     ConfirmConfig     `toml:"confirm"`
	Analysis    AnalysisConfig    `toml:"analysis"`
	Store       StoreConfig       `toml:"store"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	HTTPAddr   string `toml:"http_addr"`
	LogPath    string `toml:"log_path"`
	OracleLog  string `toml:"oracle_log_path"`
	OracleDump bool   `toml:"oracle_dump"`
}

// OracleConfig points at an OpenAI-compatible chat completion endpoint.
type OracleConfig struct {
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// BrokerConfig describes the SmartAPI-style broker REST endpoint.
type BrokerConfig struct {
	APIURL                 string `toml:"api_url"`
	APIKey                 string `toml:"api_key"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	ReadRetries            int    `toml:"read_retries"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

type InstrumentsConfig struct {
	DBPath      string  `toml:"db_path"`
	AliasesPath string  `toml:"aliases_path"`
	Watch       bool    `toml:"watch"`
	MaxDistance int     `toml:"max_distance"`
	MinScore    float64 `toml:"min_score"`
}

type ConfirmConfig struct {
	TTLSeconds   int `toml:"ttl_seconds"`
	SweepSeconds int `toml:"sweep_seconds"`
}

type AnalysisConfig struct {
	MaxConcurrency int    `toml:"max_concurrency"`
	MoversURL      string `toml:"movers_url"`
	MoversCount    int    `toml:"movers_count"`
}

type StoreConfig struct {
	DBPath string `toml:"db_path"`
}
