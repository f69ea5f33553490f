package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/saltstreams/errors"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. SALTEVENTS_SALT_URL
const DefaultEnvPrefix = "SALTEVENTS"

// Loader builds a Config from defaults, YAML file layers and environment
// overrides, in that order.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := l.applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile decodes a YAML layer onto cfg. Keys absent from the file keep
// their current values.
func (l *Loader) applyFile(cfg *Config, path string) error {
	data, err := safeReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, path, err),
			"Loader", "Load", "decode yaml")
	}
	return nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SALT_URL":             &cfg.Salt.URL,
		"SALT_TOKEN":           &cfg.Salt.Token,
		"SALT_TLS_CERT_FILE":   &cfg.Salt.TLS.CertFile,
		"SALT_TLS_KEY_FILE":    &cfg.Salt.TLS.KeyFile,
		"SALT_TLS_MIN_VERSION": &cfg.Salt.TLS.MinVersion,
		"SALT_TLS_SERVER_NAME": &cfg.Salt.TLS.ServerName,
		"NATS_URL":             &cfg.NATS.URL,
		"NATS_SUBJECT_PREFIX":  &cfg.NATS.SubjectPrefix,
		"NATS_ENCODING":        &cfg.NATS.Encoding,
		"NATS_USERNAME":        &cfg.NATS.Username,
		"NATS_PASSWORD":        &cfg.NATS.Password,
		"NATS_TOKEN":           &cfg.NATS.Token,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
	}
	ints := map[string]*int{
		"SALT_MAX_MESSAGE_LENGTH": &cfg.Salt.MaxMessageLength,
		"METRICS_PORT":            &cfg.Metrics.Port,
		"METRICS_EVENT_HISTORY":   &cfg.Metrics.EventHistory,
	}
	bools := map[string]*bool{
		"SALT_TLS_INSECURE_SKIP_VERIFY": &cfg.Salt.TLS.InsecureSkipVerify,
		"NATS_ENABLED":                  &cfg.NATS.Enabled,
		"METRICS_ENABLED":               &cfg.Metrics.Enabled,
	}
	durations := map[string]*time.Duration{
		"SALT_HANDSHAKE_TIMEOUT": &cfg.Salt.HandshakeTimeout,
		"NATS_RECONNECT_WAIT":    &cfg.NATS.ReconnectWait,
	}

	for key, dst := range strs {
		if err := l.override(key, func(val string) error {
			*dst = val
			return nil
		}); err != nil {
			return err
		}
	}
	for key, dst := range ints {
		if err := l.override(key, func(val string) error {
			n, err := strconv.Atoi(val)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}); err != nil {
			return err
		}
	}
	for key, dst := range bools {
		if err := l.override(key, func(val string) error {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		}); err != nil {
			return err
		}
	}
	for key, dst := range durations {
		if err := l.override(key, func(val string) error {
			d, err := time.ParseDuration(val)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

// override calls apply with the value of <prefix>_<key> when it is set
func (l *Loader) override(key string, apply func(string) error) error {
	name := l.envPrefix + "_" + key
	val, ok := l.lookupEnv(name)
	if !ok || val == "" {
		return nil
	}
	if err := validateEnvVar(name, val); err != nil {
		return errors.WrapInvalid(err, "Loader", "Load", "validate environment override")
	}
	if err := apply(val); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, name, err),
			"Loader", "Load", "parse environment override")
	}
	return nil
}

// SaveToFile writes the configuration as YAML, secrets included
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "marshal yaml")
	}
	return safeWriteFile(path, data)
}
