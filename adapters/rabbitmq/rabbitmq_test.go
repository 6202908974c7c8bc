package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/next-trace/scg-event-broker/adapters/rabbitmq"
	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

type fakeSession struct {
	declared []string
	bodies   [][]byte
	queues   []string
	closed   bool

	declareErr error
	publishErr error
}

func (s *fakeSession) DeclareQueue(name string) error {
	s.declared = append(s.declared, name)
	return s.declareErr
}

func (s *fakeSession) Publish(ctx context.Context, queue string, body []byte) error {
	_ = ctx
	s.queues = append(s.queues, queue)
	s.bodies = append(s.bodies, body)

	return s.publishErr
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeConnector struct {
	session  *fakeSession
	err      error
	connects int
}

func (c *fakeConnector) Connect(ctx context.Context, ch *rabbitmq.Channel) (rabbitmq.Session, error) {
	_ = ctx
	_ = ch
	c.connects++

	if c.err != nil {
		return nil, c.err
	}

	return c.session, nil
}

func TestPublish_ConnectDeclarePublishClose(t *testing.T) {
	fs := &fakeSession{}
	fc := &fakeConnector{session: fs}
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local", Connector: fc})

	event := broker.Event{"event": "user_uttered", "sender_id": "abc"}
	if err := ch.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if fc.connects != 1 {
		t.Fatalf("connects: %d", fc.connects)
	}

	if len(fs.declared) != 1 || fs.declared[0] != rabbitmq.DefaultQueue {
		t.Fatalf("declared: %v", fs.declared)
	}

	if len(fs.queues) != 1 || fs.queues[0] != rabbitmq.DefaultQueue {
		t.Fatalf("queues: %v", fs.queues)
	}

	var got broker.Event
	if err := json.Unmarshal(fs.bodies[0], &got); err != nil {
		t.Fatalf("body: %v", err)
	}

	if got["event"] != "user_uttered" || got["sender_id"] != "abc" {
		t.Fatalf("round trip: %+v", got)
	}

	if !fs.closed {
		t.Fatalf("session not closed")
	}
}

func TestPublish_EachCallConnectsFresh(t *testing.T) {
	fc := &fakeConnector{session: &fakeSession{}}
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local", Connector: fc})

	for i := 0; i < 3; i++ {
		if err := ch.Publish(context.Background(), broker.Event{"n": i}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	if fc.connects != 3 {
		t.Fatalf("connects: %d", fc.connects)
	}
}

func TestPublish_ConnectFailureWrapsCode(t *testing.T) {
	fc := &fakeConnector{err: errors.New("dial tcp: refused")}
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local", Connector: fc})

	err := ch.Publish(context.Background(), broker.Event{"event": "x"})
	if !errors.Is(err, berr.ErrConnectFailed) {
		t.Fatalf("want connect failure, got %v", err)
	}
}

func TestPublish_FailureLeavesSessionUnclosed(t *testing.T) {
	fs := &fakeSession{publishErr: errors.New("channel gone")}
	fc := &fakeConnector{session: fs}
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local", Connector: fc})

	err := ch.Publish(context.Background(), broker.Event{"event": "x"})
	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want publish failure, got %v", err)
	}

	if fs.closed {
		t.Fatalf("session closed on error path")
	}
}

func TestPublish_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &fakeConnector{session: &fakeSession{}}
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local", Connector: fc})

	if err := ch.Publish(ctx, broker.Event{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	if fc.connects != 0 {
		t.Fatalf("connected despite canceled context")
	}
}

func TestNew_Defaults(t *testing.T) {
	ch := rabbitmq.New(rabbitmq.Channel{Host: "broker.local"})

	if ch.Port != rabbitmq.DefaultPort {
		t.Fatalf("port: %d", ch.Port)
	}

	if ch.Queue != rabbitmq.DefaultQueue {
		t.Fatalf("queue: %s", ch.Queue)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuild_FromConfig(t *testing.T) {
	cfg := &broker.Config{
		URL: "broker.local",
		Kwargs: map[string]any{
			"port":     5673,
			"username": "u",
			"password": "p",
			"queue":    "events",
		},
	}

	ec, err := rabbitmq.Build(cfg, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ch, ok := ec.(*rabbitmq.Channel)
	if !ok {
		t.Fatalf("unexpected channel type %T", ec)
	}

	if ch.Host != "broker.local" || ch.Port != 5673 || ch.Queue != "events" {
		t.Fatalf("fields: %+v", ch)
	}

	if ch.Username != "u" || ch.Password != "p" {
		t.Fatalf("credentials: %q %q", ch.Username, ch.Password)
	}
}

func TestBuild_NilConfig(t *testing.T) {
	ec, err := rabbitmq.Build(nil, nil)
	if err != nil || ec != nil {
		t.Fatalf("want nil channel and nil error, got %v %v", ec, err)
	}
}
