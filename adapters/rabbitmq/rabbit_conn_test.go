package rabbitmq

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// writeKeyPair writes a self-signed certificate and key as PEM files.
// (duplicated from the package's external tests for internal-test isolation)
func writeKeyPair(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "client"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	dir := t.TempDir()
	certPath = filepath.Join(dir, "client.pem")
	keyPath = filepath.Join(dir, "client.key")

	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}

	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	return certPath, keyPath
}

func clearTLSEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvSSLClientCert, "")
	t.Setenv(EnvSSLClientKey, "")
	t.Setenv(EnvSSLCAFile, "")
}

// parseTarget runs connectTarget and parses the resulting URI back so
// assertions are on fields, not on string formatting.
func parseTarget(t *testing.T, ch *Channel) (amqp.URI, bool) {
	t.Helper()

	uri, tlsCfg, err := connectTarget(ch)
	if err != nil {
		t.Fatalf("connect target: %v", err)
	}

	parsed, err := amqp.ParseURI(uri)
	if err != nil {
		t.Fatalf("parse %q: %v", uri, err)
	}

	return parsed, tlsCfg != nil
}

func TestConnectTarget_URLHostCarriesAllParameters(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "amqp://u0:p0@broker.local:5673/"})

	parsed, hasTLS := parseTarget(t, ch)
	if hasTLS {
		t.Fatalf("URL path must handle TLS via its scheme")
	}

	if parsed.Host != "broker.local" || parsed.Port != 5673 {
		t.Fatalf("endpoint: %s:%d", parsed.Host, parsed.Port)
	}

	if parsed.Username != "u0" || parsed.Password != "p0" {
		t.Fatalf("credentials: %q %q", parsed.Username, parsed.Password)
	}
}

func TestConnectTarget_URLCredentialsOverriddenWhenBothPresent(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "amqp://u0:p0@broker.local:5673/", Username: "u1", Password: "p1"})

	parsed, _ := parseTarget(t, ch)
	if parsed.Username != "u1" || parsed.Password != "p1" {
		t.Fatalf("credentials not overridden: %q %q", parsed.Username, parsed.Password)
	}
}

func TestConnectTarget_URLCredentialsKeptWhenOnlyOneSupplied(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "amqp://u0:p0@broker.local:5673/", Username: "u1"})

	parsed, _ := parseTarget(t, ch)
	if parsed.Username != "u0" || parsed.Password != "p0" {
		t.Fatalf("credentials: %q %q", parsed.Username, parsed.Password)
	}
}

func TestConnectTarget_URLMalformedFails(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "amqp://broker.local:not-a-port"})

	if _, _, err := connectTarget(ch); err == nil {
		t.Fatalf("want error for malformed URL")
	}
}

func TestConnectTarget_BareHostDefaultsToGuest(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "broker.local", Port: 5673})

	parsed, hasTLS := parseTarget(t, ch)
	if hasTLS {
		t.Fatalf("no TLS material, no TLS config")
	}

	if parsed.Scheme != "amqp" || parsed.Host != "broker.local" || parsed.Port != 5673 {
		t.Fatalf("endpoint: %s://%s:%d", parsed.Scheme, parsed.Host, parsed.Port)
	}

	if parsed.Username != "guest" || parsed.Password != "guest" {
		t.Fatalf("credentials: %q %q", parsed.Username, parsed.Password)
	}
}

func TestConnectTarget_BareHostExplicitCredentials(t *testing.T) {
	clearTLSEnv(t)

	ch := New(Channel{Host: "broker.local", Username: "u1", Password: "p1"})

	parsed, _ := parseTarget(t, ch)
	if parsed.Username != "u1" || parsed.Password != "p1" {
		t.Fatalf("credentials: %q %q", parsed.Username, parsed.Password)
	}

	if parsed.Port != DefaultPort {
		t.Fatalf("port: %d", parsed.Port)
	}
}

func TestConnectTarget_BareHostWithTLSMaterialUsesAMQPS(t *testing.T) {
	certPath, keyPath := writeKeyPair(t)
	t.Setenv(EnvSSLClientCert, certPath)
	t.Setenv(EnvSSLClientKey, keyPath)
	t.Setenv(EnvSSLCAFile, "")

	ch := New(Channel{Host: "broker.local"})

	uri, tlsCfg, err := connectTarget(ch)
	if err != nil {
		t.Fatalf("connect target: %v", err)
	}

	if tlsCfg == nil || tlsCfg.ServerName != "broker.local" {
		t.Fatalf("tls config: %+v", tlsCfg)
	}

	parsed, err := amqp.ParseURI(uri)
	if err != nil {
		t.Fatalf("parse %q: %v", uri, err)
	}

	if parsed.Scheme != "amqps" {
		t.Fatalf("scheme: %s", parsed.Scheme)
	}
}
