// Package config loads gateway configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/babbly/api-gateway/pkg/logger"
)

// Duration decodes YAML scalars like "5s" or "10m" via time.ParseDuration,
// which yaml.v3 does not do for time.Duration itself.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full gateway configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Auth        AuthConfig        `yaml:"auth"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Profile     ProfileConfig     `yaml:"profile"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	CORS        CORSConfig        `yaml:"cors"`
	Logging     logger.Config     `yaml:"logging"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds the base URLs of the four upstream services and the
// per-call HTTP timeout applied to every upstream read.
type UpstreamConfig struct {
	UserServiceURL    string   `yaml:"user_service_url"`
	PostServiceURL    string   `yaml:"post_service_url"`
	CommentServiceURL string   `yaml:"comment_service_url"`
	LikeServiceURL    string   `yaml:"like_service_url"`
	Timeout           Duration `yaml:"timeout"`
}

// AuthConfig configures identity resolution. Mode "local" decodes bearer
// tokens in-process; mode "remote" calls the authority's userinfo endpoint.
type AuthConfig struct {
	Mode         string   `yaml:"mode"` // "local" or "remote"
	AuthorityURL string   `yaml:"authority_url"`
	Audience     string   `yaml:"audience"`
	HMACSecret   string   `yaml:"hmac_secret"`
	ClockSkew    Duration `yaml:"clock_skew"`
}

// AggregationConfig bounds the fan-out performed per aggregation request.
type AggregationConfig struct {
	Deadline      Duration `yaml:"deadline"`
	FanoutWorkers int      `yaml:"fanout_workers"`
}

// ProfileConfig selects profile count semantics. When TrueCounts is false the
// relationship counts are the lengths of the fetched collections, matching the
// behavior of the upstream services' own gateway.
type ProfileConfig struct {
	TrueCounts bool `yaml:"true_counts"`
}

// RateLimitConfig configures the per-caller rate limiter.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig lists origins allowed to call the gateway from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Upstream: UpstreamConfig{
			UserServiceURL:    "http://user-service:8081",
			PostServiceURL:    "http://post-service:8082",
			CommentServiceURL: "http://comment-service:8083",
			LikeServiceURL:    "http://like-service:8084",
			Timeout:           Duration(3 * time.Second),
		},
		Auth: AuthConfig{
			Mode:      "local",
			ClockSkew: Duration(5 * time.Minute),
		},
		Aggregation: AggregationConfig{
			Deadline:      Duration(10 * time.Second),
			FanoutWorkers: 8,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: logger.Config{Level: "info", Format: "json"},
	}
}

// Load reads config/gateway.yaml if present, then applies environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFromPath("config/gateway.yaml")
}

// LoadFromPath reads the configuration file at path on top of defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Upstream.UserServiceURL, "USER_SERVICE_URL")
	setString(&c.Upstream.PostServiceURL, "POST_SERVICE_URL")
	setString(&c.Upstream.CommentServiceURL, "COMMENT_SERVICE_URL")
	setString(&c.Upstream.LikeServiceURL, "LIKE_SERVICE_URL")
	setString(&c.Auth.Mode, "AUTH_MODE")
	setString(&c.Auth.AuthorityURL, "AUTH_AUTHORITY_URL")
	setString(&c.Auth.Audience, "AUTH_AUDIENCE")
	setString(&c.Auth.HMACSecret, "AUTH_HMAC_SECRET")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setInt(&c.Server.Port, "GATEWAY_PORT")
}

func (c *Config) validate() error {
	switch c.Auth.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("auth mode %q: must be \"local\" or \"remote\"", c.Auth.Mode)
	}
	if c.Auth.Mode == "remote" && c.Auth.AuthorityURL == "" {
		return fmt.Errorf("auth authority_url is required in remote mode")
	}
	if c.Aggregation.FanoutWorkers <= 0 {
		return fmt.Errorf("aggregation fanout_workers must be positive")
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
