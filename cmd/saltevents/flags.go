package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/c360/saltstreams/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	TagPrefix       string
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	// Overrides for config file values, applied only when set
	URL              string
	Token            string
	MaxMessageLength int
	NATSURL          string
	NATSPrefix       string
	MetricsPort      int

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SALTEVENTS_CONFIG", ""),
		"Path to YAML configuration file (env: SALTEVENTS_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("SALTEVENTS_CONFIG", ""),
		"Path to YAML configuration file (env: SALTEVENTS_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SALTEVENTS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SALTEVENTS_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SALTEVENTS_LOG_FORMAT", "json"),
		"Log format: json, text (env: SALTEVENTS_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("SALTEVENTS_DEBUG", false),
		"Enable debug logging (env: SALTEVENTS_DEBUG)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SALTEVENTS_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: SALTEVENTS_SHUTDOWN_TIMEOUT)")

	fs.StringVar(&cfg.TagPrefix, "tag-prefix",
		getEnv("SALTEVENTS_TAG_PREFIX", ""),
		"Only log events whose tag starts with this prefix (env: SALTEVENTS_TAG_PREFIX)")

	fs.StringVar(&cfg.URL, "url", "", "salt-api base URL")
	fs.StringVar(&cfg.Token, "token", "", "salt-api session token")
	fs.IntVar(&cfg.MaxMessageLength, "max-message-length", 0, "Maximum event size in bytes, 0 for unbounded")
	fs.StringVar(&cfg.NATSURL, "nats-url", "", "Forward events to this NATS server")
	fs.StringVar(&cfg.NATSPrefix, "nats-prefix", "", "NATS subject prefix")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		cfg.set[f.Name] = true
	})

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if cfg.ShowHelp {
		fs.Usage()
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

// applyOverrides copies explicitly set flags over the loaded configuration
func applyOverrides(cli *CLIConfig, cfg *config.Config) {
	if cli.set["url"] {
		cfg.Salt.URL = cli.URL
	}
	if cli.set["token"] {
		cfg.Salt.Token = cli.Token
	}
	if cli.set["max-message-length"] {
		cfg.Salt.MaxMessageLength = cli.MaxMessageLength
	}
	if cli.set["nats-url"] {
		cfg.NATS.URL = cli.NATSURL
		cfg.NATS.Enabled = cli.NATSURL != ""
	}
	if cli.set["nats-prefix"] {
		cfg.NATS.SubjectPrefix = cli.NATSPrefix
	}
	if cli.set["metrics-port"] {
		cfg.Metrics.Port = cli.MetricsPort
		cfg.Metrics.Enabled = cli.MetricsPort > 0
	}
	if cli.set["log-level"] || cli.Debug {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.set["log-format"] {
		cfg.Log.Format = cli.LogFormat
	}
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - salt-api event stream consumer

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Log every event from a salt master
  %s --url=https://salt-master:8000 --token=$SALT_TOKEN

  # Forward job returns to NATS with text logging
  %s --config=/etc/saltevents.yaml --nats-url=nats://localhost:4222 --log-format=text

  # Run with environment variables
  export SALTEVENTS_SALT_URL=https://salt-master:8000
  export SALTEVENTS_SALT_TOKEN=$SALT_TOKEN
  %s --tag-prefix=salt/job/

  # Validate configuration only
  %s --config=/etc/saltevents.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
