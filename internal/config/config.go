package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Dashboard client configuration
	ServerURL      string        `yaml:"server_url"`
	StatusPath     string        `yaml:"status_path"`
	CommandPath    string        `yaml:"command_path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Output         string        `yaml:"output"` // "text" or "html"

	// Dashboard server configuration
	ListenAddr       string        `yaml:"listen_addr"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	CommandRateLimit float64       `yaml:"command_rate_limit"` // commands per second
	CommandBurst     int           `yaml:"command_burst"`
	CommandQueueWait time.Duration `yaml:"command_queue_wait"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	// Observability
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
	HealthPort  int    `yaml:"health_port"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerURL:        "http://localhost:8080",
		StatusPath:       "/sumo",
		CommandPath:      "/api",
		PollInterval:     time.Second,
		RequestTimeout:   10 * time.Second,
		Output:           "text",
		ListenAddr:       ":8080",
		PublishInterval:  time.Second,
		CommandRateLimit: 5,
		CommandBurst:     10,
		CommandQueueWait: 5 * time.Second,
		AllowedOrigins:   []string{"*"},
		ShutdownTimeout:  5 * time.Second,
		LogLevel:         "info",
		MetricsPort:      9090,
		HealthPort:       8081,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing precedence. A .env file in the working
// directory is loaded into the environment first when present. Overrides
// run last, before validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from defaults and environment variables
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerURL = getEnvOrDefault("DASHBOARD_URL", c.ServerURL)
	c.StatusPath = getEnvOrDefault("STATUS_PATH", c.StatusPath)
	c.CommandPath = getEnvOrDefault("COMMAND_PATH", c.CommandPath)
	c.PollInterval = parseDuration(os.Getenv("POLL_INTERVAL"), c.PollInterval)
	c.RequestTimeout = parseDuration(os.Getenv("REQUEST_TIMEOUT"), c.RequestTimeout)
	c.Output = getEnvOrDefault("OUTPUT", c.Output)
	c.ListenAddr = getEnvOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.PublishInterval = parseDuration(os.Getenv("PUBLISH_INTERVAL"), c.PublishInterval)
	c.CommandRateLimit = parseFloat(os.Getenv("COMMAND_RATE_LIMIT"), c.CommandRateLimit)
	c.CommandBurst = parseInt(os.Getenv("COMMAND_BURST"), c.CommandBurst)
	c.CommandQueueWait = parseDuration(os.Getenv("COMMAND_QUEUE_WAIT"), c.CommandQueueWait)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.ShutdownTimeout = parseDuration(os.Getenv("SHUTDOWN_TIMEOUT"), c.ShutdownTimeout)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.MetricsPort = parseInt(os.Getenv("METRICS_PORT"), c.MetricsPort)
	c.HealthPort = parseInt(os.Getenv("HEALTH_PORT"), c.HealthPort)
}

// Validate checks field values
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("DASHBOARD_URL is required")
	}
	if !strings.HasPrefix(c.StatusPath, "/") || !strings.HasPrefix(c.CommandPath, "/") {
		return fmt.Errorf("endpoint paths must start with '/', got %q and %q", c.StatusPath, c.CommandPath)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got: %s", c.PollInterval)
	}
	if c.PublishInterval <= 0 {
		return fmt.Errorf("PUBLISH_INTERVAL must be positive, got: %s", c.PublishInterval)
	}
	if c.Output != "text" && c.Output != "html" {
		return fmt.Errorf("OUTPUT must be either 'text' or 'html', got: %s", c.Output)
	}
	if c.CommandRateLimit <= 0 || c.CommandBurst <= 0 {
		return fmt.Errorf("command rate limit and burst must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}

func parseFloat(value string, defaultValue float64) float64 {
	if value == "" {
		return defaultValue
	}
	var result float64
	fmt.Sscanf(value, "%g", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
