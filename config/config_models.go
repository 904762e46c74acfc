package config

import "time"

// Config is the root of ~/.talpa.yaml
type Config struct {
	Log         *LogConfig        `mapstructure:"log" yaml:"log,omitempty"`
	API         APIConfig         `mapstructure:"api" yaml:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Webhook     WebhookConfig     `mapstructure:"webhook" yaml:"webhook,omitempty"`
}

type LogRotationConfig struct {
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize int `mapstructure:"maxSize" yaml:"maxSize,omitempty"`
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge     int  `mapstructure:"maxAge" yaml:"maxAge,omitempty"`
	MaxBackups int  `mapstructure:"maxBackups" yaml:"maxBackups,omitempty"`
	LocalTime  bool `mapstructure:"localTime" yaml:"localTime,omitempty"`
	Compress   bool `mapstructure:"compress" yaml:"compress,omitempty"`
}

type LogConfig struct {
	// stderr, stdout, none or a file path
	Output string `mapstructure:"output" yaml:"output,omitempty"`
	// trace, debug, info, warn, error, fatal
	Level string `mapstructure:"level" yaml:"level,omitempty"`
	// text or json
	Format   string             `mapstructure:"format" yaml:"format,omitempty"`
	Rotation *LogRotationConfig `mapstructure:"rotation" yaml:"rotation,omitempty"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL" yaml:"baseURL,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	// retries done by the HTTP transport on 429 and 5xx
	MaxRetries int `mapstructure:"maxRetries" yaml:"maxRetries,omitempty"`
}

type CredentialsConfig struct {
	// keychain, file or env
	Backend string `mapstructure:"backend" yaml:"backend,omitempty"`
	File    string `mapstructure:"file" yaml:"file,omitempty"`
	// keychain service name
	Service string `mapstructure:"service" yaml:"service,omitempty"`
}
