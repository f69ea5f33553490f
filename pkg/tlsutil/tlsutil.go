// Package tlsutil builds client TLS configurations for salt-api connections.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/saltstreams/errors"
)

// ClientConfig describes how to verify the salt-api server and, for
// deployments fronted by mTLS, which certificate to present
type ClientConfig struct {
	// CAFiles are PEM bundles trusted in addition to the system pool
	CAFiles []string `json:"ca_files,omitempty" yaml:"ca_files"`

	// CertFile and KeyFile hold the client certificate. Both or neither.
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file"`

	// MinVersion is "1.2" (default) or "1.3"
	MinVersion string `json:"min_version,omitempty" yaml:"min_version"`

	// ServerName overrides the name used for certificate verification
	ServerName string `json:"server_name,omitempty" yaml:"server_name"`

	// InsecureSkipVerify disables certificate verification
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify"`
}

// IsZero reports whether cfg leaves every setting at its default
func (cfg ClientConfig) IsZero() bool {
	return len(cfg.CAFiles) == 0 && cfg.CertFile == "" && cfg.KeyFile == "" &&
		cfg.MinVersion == "" && cfg.ServerName == "" && !cfg.InsecureSkipVerify
}

// Validate checks the settings without touching the filesystem
func (cfg ClientConfig) Validate() error {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return errors.WrapInvalid(
			fmt.Errorf("%w: tls cert_file and key_file must be set together", errors.ErrInvalidConfig),
			"tlsutil", "Validate", "check client certificate")
	}
	if _, err := parseTLSVersion(cfg.MinVersion); err != nil {
		return errors.WrapInvalid(err, "tlsutil", "Validate", "check min version")
	}
	return nil
}

// LoadClientConfig creates a tls.Config from cfg.
// The system CA pool is always trusted; CAFiles extend it.
func LoadClientConfig(cfg ClientConfig) (*tls.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	minVersion, _ := parseTLSVersion(cfg.MinVersion)

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(fmt.Errorf("invalid PEM data"),
				"tlsutil", "LoadClientConfig", fmt.Sprintf("parse CA certificate from %s", caFile))
		}
	}

	tlsConfig := &tls.Config{
		MinVersion:         minVersion,
		RootCAs:            rootCAs,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed salt-api certificates
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func parseTLSVersion(version string) (uint16, error) {
	switch version {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: unsupported tls version %q", errors.ErrInvalidConfig, version)
	}
}
