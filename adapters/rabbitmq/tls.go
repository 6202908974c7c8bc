package rabbitmq

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// Environment variables consulted by TLSOptions.
const (
	// EnvSSLClientCert is the path to the client certificate (required).
	EnvSSLClientCert = "RABBITMQ_SSL_CLIENT_CERTIFICATE"
	// EnvSSLClientKey is the path to the client key (required).
	EnvSSLClientKey = "RABBITMQ_SSL_CLIENT_KEY"
	// EnvSSLCAFile is the path to the CA file for peer verification (optional).
	EnvSSLCAFile = "RABBITMQ_SSL_CA_FILE"
)

// TLSOptions builds the TLS configuration for the given broker hostname
// from the RABBITMQ_SSL_* environment variables. TLS is opt-in: when either
// required path is unset the result is nil with no error. When the CA file
// is given it becomes the explicit trust root; otherwise the system roots
// apply. The hostname is bound for SNI and peer verification.
func TLSOptions(host string) (*tls.Config, error) {
	certPath := os.Getenv(EnvSSLClientCert)
	keyPath := os.Getenv(EnvSSLClientKey)

	if certPath == "" || keyPath == "" {
		return nil, nil
	}

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq tls client pair: %w", errors.Join(berr.ErrInvalidConfig, err))
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{pair},
		ServerName:   host,
		MinVersion:   tls.VersionTLS12,
	}

	if caPath := os.Getenv(EnvSSLCAFile); caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq tls ca file: %w", errors.Join(berr.ErrInvalidConfig, err))
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("rabbitmq tls ca file %q: %w: no certificates found", caPath, berr.ErrInvalidConfig)
		}

		cfg.RootCAs = pool
	}

	return cfg, nil
}
