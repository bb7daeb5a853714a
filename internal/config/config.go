// Package config loads tool configuration from an optional YAML file and
// CLUSTERAUDIT_* environment variables. CLI flags override both; the merge
// happens in the cli package.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Namespace     string `mapstructure:"namespace"`      // Target namespace when all_namespaces is false
	AllNamespaces bool   `mapstructure:"all_namespaces"` // Scan every namespace instead of one

	KubeconfigPath string `mapstructure:"kubeconfig_path"`
	Context        string `mapstructure:"context"`

	Output      string `mapstructure:"output" validate:"oneof=text json yaml"`
	LogTail     int64  `mapstructure:"log_tail" validate:"gte=1"`        // Log lines fetched per pod
	Concurrency int    `mapstructure:"concurrency" validate:"gte=1,lte=64"` // Parallel checkers; report order is fixed regardless
	TimeoutSec  int    `mapstructure:"timeout_sec" validate:"gte=0"`     // Whole-scan deadline; 0 = none

	K8sTimeoutSec      int     `mapstructure:"k8s_timeout_sec" validate:"gte=0"` // Per-call timeout; 0 = default
	K8sRateLimitPerSec float64 `mapstructure:"k8s_rate_limit_per_sec" validate:"gte=0"`
	K8sRateLimitBurst  int     `mapstructure:"k8s_rate_limit_burst" validate:"gte=0"`
	K8sRetryAttempts   int     `mapstructure:"k8s_retry_attempts" validate:"gte=0"` // 0 = default

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogJSON  bool   `mapstructure:"log_json"`

	OtelEndpoint          string  `mapstructure:"otel_endpoint"` // OTLP endpoint; empty disables tracing
	OtelSamplingRate      float64 `mapstructure:"otel_sampling_rate" validate:"gte=0,lte=1"`
	MetricsPushgatewayURL string  `mapstructure:"metrics_pushgateway_url"` // Empty disables the metrics push

	FailOnFindings   bool   `mapstructure:"fail_on_findings"` // Exit 3 when a completed scan found anything
	MinServerVersion string `mapstructure:"min_server_version"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/clusteraudit/")
	viper.AddConfigPath("$HOME/.clusteraudit")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("namespace", "default")
	viper.SetDefault("all_namespaces", false)
	viper.SetDefault("kubeconfig_path", "")
	viper.SetDefault("context", "")
	viper.SetDefault("output", "text")
	viper.SetDefault("log_tail", 100)
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("timeout_sec", 0)
	viper.SetDefault("k8s_timeout_sec", 30)
	viper.SetDefault("k8s_rate_limit_per_sec", 0) // 0 = disabled
	viper.SetDefault("k8s_rate_limit_burst", 0)
	viper.SetDefault("k8s_retry_attempts", 3)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
	viper.SetDefault("otel_endpoint", "")
	viper.SetDefault("otel_sampling_rate", 1.0)
	viper.SetDefault("metrics_pushgateway_url", "")
	viper.SetDefault("fail_on_findings", false)
	// 1.21 is the floor for networking.k8s.io/v1 Ingress and autoscaling/v2.
	viper.SetDefault("min_server_version", "1.21")

	// Environment variables
	viper.SetEnvPrefix("CLUSTERAUDIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
