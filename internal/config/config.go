// Package config loads tfsctl settings from a YAML file and TFS_* environment
// variables.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ilyakaznacheev/cleanenv"
)

// Logging outputs.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Config is the tfsctl configuration. Environment variables override values
// read from the file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig describes the TFS server and the account used to reach it.
type ServerConfig struct {
	Host       string        `yaml:"host" env:"TFS_HOST"`
	Port       int           `yaml:"port" env:"TFS_PORT" env-default:"443"`
	Collection string        `yaml:"collection" env:"TFS_COLLECTION" env-default:"DefaultCollection"`
	Project    string        `yaml:"project" env:"TFS_PROJECT"`
	Domain     string        `yaml:"domain" env:"TFS_DOMAIN"`
	Username   string        `yaml:"username" env:"TFS_USERNAME"`
	Password   string        `yaml:"password" env:"TFS_PASSWORD"`
	APIVersion string        `yaml:"apiVersion" env:"TFS_API_VERSION" env-default:"1.0"`
	PageSize   int           `yaml:"pageSize" env:"TFS_PAGE_SIZE" env-default:"200"`
	Timeout    time.Duration `yaml:"timeout" env:"TFS_TIMEOUT" env-default:"30s"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"TFS_LOG_LEVEL" env-default:"info"`
	JSON   bool   `yaml:"json" env:"TFS_LOG_JSON" env-default:"false"`
	Output string `yaml:"output" env:"TFS_LOG_OUTPUT" env-default:"stderr"`

	// File rotation, used when Output is "file".
	FilePath   string `yaml:"filePath" env:"TFS_LOG_FILE"`
	MaxSize    int    `yaml:"maxSize" env:"TFS_LOG_MAX_SIZE" env-default:"100"`
	MaxBackups int    `yaml:"maxBackups" env:"TFS_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"maxAge" env:"TFS_LOG_MAX_AGE" env-default:"7"`
	Compress   bool   `yaml:"compress" env:"TFS_LOG_COMPRESS" env-default:"true"`
}

// MetricsConfig controls pushing request metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string        `yaml:"pushgatewayUrl" env:"TFS_PUSHGATEWAY_URL"`
	JobName        string        `yaml:"jobName" env:"TFS_METRICS_JOB" env-default:"tfsctl"`
	Timeout        time.Duration `yaml:"timeout" env:"TFS_METRICS_TIMEOUT" env-default:"10s"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool {
	return m.PushgatewayURL != ""
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled" env:"TFS_TRACING_ENABLED" env-default:"false"`
	Endpoint     string        `yaml:"endpoint" env:"TFS_TRACING_ENDPOINT"`
	ServiceName  string        `yaml:"serviceName" env:"TFS_TRACING_SERVICE_NAME" env-default:"tfsctl"`
	Environment  string        `yaml:"environment" env:"TFS_TRACING_ENVIRONMENT" env-default:"production"`
	Insecure     bool          `yaml:"insecure" env:"TFS_TRACING_INSECURE" env-default:"false"`
	Timeout      time.Duration `yaml:"timeout" env:"TFS_TRACING_TIMEOUT" env-default:"5s"`
	SamplingRate float64       `yaml:"samplingRate" env:"TFS_TRACING_SAMPLING_RATE" env-default:"1.0"`
}

// Load reads the configuration from path, when given, and the environment,
// then validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Logging),
		validation.Field(&c.Metrics),
		validation.Field(&c.Tracing),
	)
}

// Validate implements validation.Validatable.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Collection, validation.Required),
		validation.Field(&s.Domain, validation.Required),
		validation.Field(&s.Username, validation.Required),
		validation.Field(&s.Password, validation.Required),
		validation.Field(&s.APIVersion, validation.Required),
		validation.Field(&s.PageSize, validation.Required, validation.Min(1), validation.Max(200)),
		validation.Field(&s.Timeout, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Output, validation.In(OutputStderr, OutputFile)),
		validation.Field(&l.FilePath, validation.When(l.Output == OutputFile, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.JobName, validation.When(m.Enabled(), validation.Required)),
		validation.Field(&m.Timeout, validation.When(m.Enabled(), validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (t TracingConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Endpoint, validation.When(t.Enabled, validation.Required)),
		validation.Field(&t.ServiceName, validation.When(t.Enabled, validation.Required)),
		validation.Field(&t.Timeout, validation.When(t.Enabled, validation.Required)),
		validation.Field(&t.SamplingRate, validation.Min(0.0), validation.Max(1.0)),
	)
}
