package rabbitmq

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Concrete amqp091-backed connector.

const (
	// Dial policy applied on every publish, in both the URL and the
	// discrete-parameter connection paths.
	connectAttempts   = 20
	connectRetryDelay = 5 * time.Second
)

type amqpConnector struct{}

func (amqpConnector) Connect(ctx context.Context, ch *Channel) (Session, error) {
	uri, tlsCfg, err := connectTarget(ch)
	if err != nil {
		return nil, err
	}

	conn, err := dialWithRetry(ctx, uri, tlsCfg)
	if err != nil {
		return nil, err
	}

	ac, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &amqpSession{conn: conn, ch: ac}, nil
}

// connectTarget resolves the dial URI and TLS configuration. A host
// beginning with an amqp scheme is a complete URL and handles TLS through
// its scheme; a bare host uses the discrete parameters plus the
// environment-derived TLS options.
func connectTarget(ch *Channel) (string, *tls.Config, error) {
	if strings.HasPrefix(ch.Host, "amqp") {
		uri, err := amqp.ParseURI(ch.Host)
		if err != nil {
			return "", nil, err
		}

		if ch.Username != "" && ch.Password != "" {
			uri.Username = ch.Username
			uri.Password = ch.Password
		}

		return uri.String(), nil, nil
	}

	tlsCfg, err := TLSOptions(ch.Host)
	if err != nil {
		return "", nil, err
	}

	uri := amqp.URI{Scheme: "amqp", Host: ch.Host, Port: ch.Port, Vhost: "/"}
	if tlsCfg != nil {
		uri.Scheme = "amqps"
	}

	if ch.Username != "" && ch.Password != "" {
		uri.Username = ch.Username
		uri.Password = ch.Password
	} else {
		uri.Username = "guest"
		uri.Password = "guest"
	}

	return uri.String(), tlsCfg, nil
}

func dialWithRetry(ctx context.Context, uri string, tlsCfg *tls.Config) (*amqp.Connection, error) {
	var lastErr error

	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(connectRetryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		conn, err := amqp.DialConfig(uri, amqp.Config{
			TLSClientConfig: tlsCfg,
			Locale:          "en_US",
			Properties:      amqp.Table{"product": "scg-event-broker"},
		})
		if err == nil {
			return conn, nil
		}

		lastErr = err
	}

	return nil, lastErr
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (s *amqpSession) DeclareQueue(name string) error {
	_, err := s.ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func (s *amqpSession) Publish(ctx context.Context, queue string, body []byte) error {
	return s.ch.PublishWithContext(
		ctx,
		"", // default exchange
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (s *amqpSession) Close() error { return s.conn.Close() }
