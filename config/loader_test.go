package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/saltstreams/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return l
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "saltevents.yaml", `
salt:
  url: https://salt-master:8000
  token: abc123
  max_message_length: 1048576
  handshake_timeout: 10s
nats:
  enabled: true
  subject_prefix: events.salt
metrics:
  enabled: true
  port: 9100
`)

	l := newTestLoader(nil)
	l.EnableValidation(true)
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://salt-master:8000", cfg.Salt.URL)
	assert.Equal(t, "abc123", cfg.Salt.Token)
	assert.Equal(t, 1048576, cfg.Salt.MaxMessageLength)
	assert.Equal(t, 10*time.Second, cfg.Salt.HandshakeTimeout)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "events.salt", cfg.NATS.SubjectPrefix)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 4096, cfg.Salt.ReadChunkSize)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 9100, cfg.Metrics.Port)
}

func TestLoader_Layers(t *testing.T) {
	base := writeFile(t, "base.yaml", `
salt:
  url: https://salt-master:8000
  token: base-token
log:
  level: debug
`)
	site := writeFile(t, "site.yml", `
salt:
  token: site-token
`)

	l := newTestLoader(nil)
	l.AddLayer(base)
	l.AddLayer(site)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://salt-master:8000", cfg.Salt.URL)
	assert.Equal(t, "site-token", cfg.Salt.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_EnvOverrides(t *testing.T) {
	path := writeFile(t, "saltevents.yaml", "salt:\n  token: file-token\n")

	l := newTestLoader(map[string]string{
		"SALTEVENTS_SALT_TOKEN":              "env-token",
		"SALTEVENTS_SALT_MAX_MESSAGE_LENGTH": "2048",
		"SALTEVENTS_SALT_HANDSHAKE_TIMEOUT":  "5s",
		"SALTEVENTS_NATS_ENABLED":            "true",
		"SALTEVENTS_NATS_RECONNECT_WAIT":     "1s",
		"SALTEVENTS_METRICS_PORT":            "9200",
		"SALTEVENTS_LOG_FORMAT":              "text",
		"SALTEVENTS_NATS_URL":                "",
	})
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Salt.Token)
	assert.Equal(t, 2048, cfg.Salt.MaxMessageLength)
	assert.Equal(t, 5*time.Second, cfg.Salt.HandshakeTimeout)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL, "empty values are ignored")
}

func TestLoader_EnvPrefix(t *testing.T) {
	l := newTestLoader(map[string]string{"CUSTOM_SALT_TOKEN": "custom"})
	l.SetEnvPrefix("CUSTOM")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Salt.Token)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := newTestLoader(nil).LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, errors.ErrConfigNotFound)
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := writeFile(t, "config.toml", "")
		_, err := newTestLoader(nil).LoadFile(path)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "salt:\n  tokn: typo\n")
		_, err := newTestLoader(nil).LoadFile(path)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "salt:\n  handshake_timeout: soon\n")
		_, err := newTestLoader(nil).LoadFile(path)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("bad env value", func(t *testing.T) {
		_, err := newTestLoader(map[string]string{"SALTEVENTS_METRICS_PORT": "ninety"}).Load()
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("validation", func(t *testing.T) {
		l := newTestLoader(nil)
		l.EnableValidation(true)
		_, err := l.Load()
		assert.ErrorIs(t, err, errors.ErrMissingConfig)
	})

	t.Run("directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "conf.yaml")
		require.NoError(t, os.Mkdir(dir, 0o700))
		_, err := newTestLoader(nil).LoadFile(dir)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("oversized file", func(t *testing.T) {
		path := writeFile(t, "big.yaml", "# "+strings.Repeat("x", maxConfigSize)+"\n")
		_, err := newTestLoader(nil).LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "larger than")
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.yaml", "")
		cfg, err := newTestLoader(nil).LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestConfig_SaveToFile(t *testing.T) {
	cfg := validConfig()
	cfg.NATS.Enabled = true
	cfg.Salt.HandshakeTimeout = 3 * time.Second

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := newTestLoader(nil).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoader_NestedSections(t *testing.T) {
	path := writeFile(t, "saltevents.yaml", `
salt:
  url: https://salt-master:8000
  token: abc123
  tls:
    ca_files: [/etc/salt/pki/ca.pem]
    min_version: "1.3"
nats:
  enabled: true
  encoding: msgpack
  connect_backoff:
    max_attempts: 4
    initial_delay: 250ms
    max_delay: 2s
`)

	l := newTestLoader(map[string]string{
		"SALTEVENTS_SALT_TLS_SERVER_NAME":          "salt-master",
		"SALTEVENTS_SALT_TLS_INSECURE_SKIP_VERIFY": "true",
	})
	l.EnableValidation(true)
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/etc/salt/pki/ca.pem"}, cfg.Salt.TLS.CAFiles)
	assert.Equal(t, "1.3", cfg.Salt.TLS.MinVersion)
	assert.Equal(t, "salt-master", cfg.Salt.TLS.ServerName)
	assert.True(t, cfg.Salt.TLS.InsecureSkipVerify)
	assert.Equal(t, "msgpack", cfg.NATS.Encoding)
	assert.Equal(t, 4, cfg.NATS.ConnectBackoff.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.NATS.ConnectBackoff.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.NATS.ConnectBackoff.MaxDelay)
	// Unset backoff keys keep their defaults.
	assert.Equal(t, 1.5, cfg.NATS.ConnectBackoff.Multiplier)
}
