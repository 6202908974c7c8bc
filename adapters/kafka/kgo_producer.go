package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// Concrete franz-go based producer factory.

type kgoFactory struct{}

func (kgoFactory) NewProducer(ch *Channel) (Producer, error) {
	opts := []kgo.Opt{kgo.SeedBrokers(ch.Host)}

	switch ch.SecurityProtocol {
	case ProtocolSASLPlaintext:
		opts = append(opts, kgo.SASL(plain.Auth{
			User: ch.SASLUsername,
			Pass: ch.SASLPassword,
		}.AsMechanism()))
	case ProtocolSSL:
		tlsCfg, err := sslConfig(ch)
		if err != nil {
			return nil, err
		}

		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	default:
		// New validates the protocol; this is unreachable through Build.
		return nil, fmt.Errorf("kafka security protocol %q: %w", ch.SecurityProtocol, berr.ErrUnsupportedProtocol)
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return kgoProducer{cl: cl}, nil
}

// sslConfig wires the configured certificate material. Only hostname
// verification is relaxed; the peer chain is always verified, against the
// CA file when one is given and the system roots otherwise.
func sslConfig(ch *Channel) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // hostname verification intentionally off; chain checked below
		MinVersion:         tls.VersionTLS12,
	}

	if ch.SSLCertFile != "" && ch.SSLKeyFile != "" {
		pair, err := tls.LoadX509KeyPair(ch.SSLCertFile, ch.SSLKeyFile)
		if err != nil {
			return nil, fmt.Errorf("kafka tls client pair: %w", errors.Join(berr.ErrInvalidConfig, err))
		}

		cfg.Certificates = []tls.Certificate{pair}
	}

	roots, err := trustRoots(ch.SSLCAFile)
	if err != nil {
		return nil, err
	}

	cfg.VerifyPeerCertificate = verifyChainOnly(roots)

	return cfg, nil
}

func trustRoots(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("kafka tls system roots: %w", err)
		}

		return pool, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("kafka tls ca file: %w", errors.Join(berr.ErrInvalidConfig, err))
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("kafka tls ca file %q: %w: no certificates found", caFile, berr.ErrInvalidConfig)
	}

	return pool, nil
}

// verifyChainOnly validates the peer chain against roots without checking
// the hostname.
func verifyChainOnly(roots *x509.CertPool) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("no peer certificate presented")
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))

		for _, raw := range rawCerts {
			c, err := x509.ParseCertificate(raw)
			if err != nil {
				return err
			}

			certs = append(certs, c)
		}

		opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
		for _, c := range certs[1:] {
			opts.Intermediates.AddCert(c)
		}

		_, err := certs[0].Verify(opts)

		return err
	}
}

type kgoProducer struct{ cl *kgo.Client }

func (p kgoProducer) Produce(ctx context.Context, topic string, value []byte) error {
	rec := &kgo.Record{Topic: topic, Value: value}
	return p.cl.ProduceSync(ctx, rec).FirstErr()
}

func (p kgoProducer) Close() error {
	p.cl.Close()
	return nil
}
